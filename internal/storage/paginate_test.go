package storage

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePage(t *testing.T) {
	cases := []struct {
		query string
		want  Page
	}{
		{"", Page{Page: 1, PageSize: DefaultPageSize}},
		{"page=3&page_size=10", Page{Page: 3, PageSize: 10}},
		{"page=-1&limit=5", Page{Page: 1, PageSize: 5}},
		{"page_size=1000", Page{Page: 1, PageSize: MaxPageSize}},
		{"page=x&page_size=y", Page{Page: 1, PageSize: DefaultPageSize}},
	}
	for _, c := range cases {
		q, _ := url.ParseQuery(c.query)
		assert.Equal(t, c.want, ParsePage(q), c.query)
	}

	assert.Equal(t, 20, Page{Page: 3, PageSize: 10}.Offset())
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]int{1, 2}, 41, Page{Page: 2, PageSize: 20})
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, int64(41), resp.Total)
	assert.Equal(t, 2, resp.Page)

	empty := NewPaginatedResponse([]int{}, 0, Page{Page: 1, PageSize: 20})
	assert.Equal(t, 0, empty.TotalPages)
}
