package leads

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/bulk"
	"github.com/s/leadBoard/internal/config"
	"github.com/s/leadBoard/internal/handlers"
)

func newService() *Service {
	h := handlers.NewHandler(nil, sessions.NewCookieStore([]byte("k")), nil,
		auth.NewManager("s", time.Minute, time.Hour), config.Config{})
	return &Service{Handler: *h}
}

func withID(req *http.Request, id string) *http.Request {
	return mux.SetURLVars(req, map[string]string{"id": id})
}

func TestRequestValidation(t *testing.T) {
	s := newService()

	cases := []struct {
		name    string
		handler http.HandlerFunc
		req     *http.Request
	}{
		{"list unknown status", s.ListLeads, httptest.NewRequest(http.MethodGet, "/leads?statuses=won", nil)},
		{"list bad date", s.ListLeads, httptest.NewRequest(http.MethodGet, "/leads?created_from=yesterday", nil)},
		{"board unknown status", s.Board, httptest.NewRequest(http.MethodGet, "/leads/board?status=lost", nil)},
		{"get bad id", s.GetLead, withID(httptest.NewRequest(http.MethodGet, "/leads/x", nil), "x")},
		{"move unknown status", s.UpdateStatus, withID(httptest.NewRequest(http.MethodPatch, "/leads/1/status",
			strings.NewReader(`{"status":"won","position":0}`)), "1")},
		{"move bad json", s.UpdateStatus, withID(httptest.NewRequest(http.MethodPatch, "/leads/1/status",
			strings.NewReader(`{"status":`)), "1")},
		{"create unknown status", s.CreateLead, httptest.NewRequest(http.MethodPost, "/leads",
			strings.NewReader(`{"name":"A","status":"won"}`))},
		{"update unknown status", s.UpdateLead, withID(httptest.NewRequest(http.MethodPut, "/leads/1",
			strings.NewReader(`{"status":"won"}`)), "1")},
		{"delete bad id", s.DeleteLead, withID(httptest.NewRequest(http.MethodDelete, "/leads/0", nil), "0")},
		{"export bad format", s.Export, httptest.NewRequest(http.MethodGet, "/leads/export?format=pdf", nil)},
		{"blank note", s.AddNote, withID(httptest.NewRequest(http.MethodPost, "/leads/1/notes",
			strings.NewReader(`{"text":"   "}`)), "1")},
		{"notes bad id", s.ListNotes, withID(httptest.NewRequest(http.MethodGet, "/leads/x/notes", nil), "x")},
		{"upload without file", s.BulkUpload, httptest.NewRequest(http.MethodPost, "/leads/bulk-upload", nil)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.handler(rec, c.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSampleCSV(t *testing.T) {
	s := newService()
	rec := httptest.NewRecorder()
	s.SampleCSV(rec, httptest.NewRequest(http.MethodGet, "/leads/sample-csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	firstLine := strings.SplitN(rec.Body.String(), "\n", 2)[0]
	assert.Equal(t, strings.Join(bulk.Header, ","), firstLine)
}

func TestAssigneeChanged(t *testing.T) {
	one, two := uint(1), uint(2)
	assert.False(t, assigneeChanged(nil, nil))
	assert.False(t, assigneeChanged(&one, nil))
	assert.False(t, assigneeChanged(&one, &one))
	assert.True(t, assigneeChanged(nil, &one))
	assert.True(t, assigneeChanged(&one, &two))
}
