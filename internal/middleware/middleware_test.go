package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protected(tokens *auth.Manager) http.Handler {
	return Authenticate(tokens, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("X-User", claims.Subject)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewManager("secret", time.Minute, time.Hour)
	access, err := tokens.IssueAccess(5, models.RoleUser)
	require.NoError(t, err)
	refresh, _, _, err := tokens.IssueRefresh(5, models.RoleUser)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"access token", "Bearer " + access, http.StatusOK},
		{"lowercase scheme", "bearer " + access, http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/leads", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			protected(tokens).ServeHTTP(rec, req)
			assert.Equal(t, c.want, rec.Code)
		})
	}
}

func TestAuthenticateQueryTokenOnlyForWebsocket(t *testing.T) {
	tokens := auth.NewManager("secret", time.Minute, time.Hour)
	access, err := tokens.IssueAccess(5, models.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws/board?token="+access, nil)
	rec := httptest.NewRecorder()
	protected(tokens).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/ws/board?token="+access, nil)
	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	protected(tokens).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-User"))
}

func TestRequiredRole(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	adminOnly := RequiredRole(models.RoleAdmin)(ok)

	rec := httptest.NewRecorder()
	adminOnly(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for role, want := range map[uint]int{
		models.RoleUser:    http.StatusForbidden,
		models.RoleManager: http.StatusForbidden,
		models.RoleAdmin:   http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
		req = req.WithContext(WithClaims(req.Context(), &auth.Claims{UserID: 1, RoleID: role}))
		rec := httptest.NewRecorder()
		adminOnly(rec, req)
		assert.Equal(t, want, rec.Code, models.RoleName(role))
	}
}

func TestCors(t *testing.T) {
	h := Cors([]string{"http://localhost:3000"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/leads", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
