package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/config"
	"github.com/s/leadBoard/internal/handlers"
	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/realtime"
)

func testRouter(t *testing.T) (http.Handler, *auth.Manager) {
	t.Helper()
	cfg := config.Config{
		UploadDir:      t.TempDir(),
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	tokens := auth.NewManager("secret", time.Minute, time.Hour)
	h := handlers.NewHandler(nil, sessions.NewCookieStore([]byte("k")), nil, tokens, cfg)
	hub := realtime.NewHub(cfg.AllowedOrigins)
	t.Cleanup(hub.Close)
	return newRouter(h, hub), tokens
}

func TestRoutes(t *testing.T) {
	router, tokens := testRouter(t)
	userToken, err := tokens.IssueAccess(4, models.RoleUser)
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"leads need a token", http.MethodGet, "/leads", "", "", http.StatusUnauthorized},
		{"board needs a token", http.MethodGet, "/leads/board", "", "", http.StatusUnauthorized},
		{"reference data needs a token", http.MethodGet, "/api/trainers", "", "", http.StatusUnauthorized},
		{"login validates body", http.MethodPost, "/auth/login", `{}`, "", http.StatusBadRequest},
		{"refresh without token", http.MethodPost, "/auth/refresh-token", `{}`, "", http.StatusUnauthorized},
		{"google disabled", http.MethodGet, "/auth/google/login", "", "", http.StatusNotFound},
		{"delete is staff only", http.MethodDelete, "/leads/3", `{"reason":"dup"}`, userToken, http.StatusForbidden},
		{"bulk upload is staff only", http.MethodPost, "/leads/bulk-upload", "", userToken, http.StatusForbidden},
		{"users are admin only", http.MethodGet, "/api/users", "", userToken, http.StatusForbidden},
		{"sample csv", http.MethodGet, "/leads/sample-csv", "", userToken, http.StatusOK},
		{"bad status", http.MethodPatch, "/leads/3/status", `{"status":"nope"}`, userToken, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestPreflight(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/leads", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
