package storage

import (
	"math"
	"net/url"
	"strconv"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page     int
	PageSize int
}

// ParsePage reads "page" and "page_size" ("limit" is accepted too).
func ParsePage(q url.Values) Page {
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}

	size, _ := strconv.Atoi(q.Get("page_size"))
	if size == 0 {
		size, _ = strconv.Atoi(q.Get("limit"))
	}
	switch {
	case size > MaxPageSize:
		size = MaxPageSize
	case size <= 0:
		size = DefaultPageSize
	}
	return Page{Page: page, PageSize: size}
}

func (p Page) Offset() int { return (p.Page - 1) * p.PageSize }

// Scope applies offset and limit to a query.
func (p Page) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.PageSize)
}

// PaginatedResponse is the body of every paginated list endpoint.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"pages"`
}

func NewPaginatedResponse(data interface{}, total int64, p Page) PaginatedResponse {
	pages := 0
	if total > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.PageSize)))
	}
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}
