package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/config"
	"github.com/s/leadBoard/internal/storage"
)

func newTestHandler() *Handler {
	store := sessions.NewCookieStore([]byte("test-session-key"))
	tokens := auth.NewManager("test-secret", time.Minute, time.Hour)
	oauth := auth.InitGoogleOAuthConfig("client", "secret", "http://localhost/auth/google/callback")
	return NewHandler(nil, store, oauth, tokens, config.Config{Env: config.EnvDevelopment})
}

func TestStorageErrorMapping(t *testing.T) {
	cases := map[error]int{
		storage.ErrLeadNotFound:                            http.StatusNotFound,
		fmt.Errorf("%w: status", storage.ErrMissingFields): http.StatusBadRequest,
		storage.ErrInvalidStatus:                           http.StatusBadRequest,
		storage.ErrReasonRequired:                          http.StatusBadRequest,
		fmt.Errorf("%w (course_id)", storage.ErrInUse):     http.StatusConflict,
		storage.ErrUserInactive:                            http.StatusForbidden,
		storage.ErrSessionNotFound:                         http.StatusUnauthorized,
		errors.New("connection reset"):                     http.StatusInternalServerError,
		fmt.Errorf("x: %w", storage.ErrUnknownReference):   http.StatusBadRequest,
	}
	for err, want := range cases {
		rec := httptest.NewRecorder()
		StorageError(rec, err)
		assert.Equal(t, want, rec.Code, err.Error())
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestPathID(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/leads/12", nil), map[string]string{"id": "12"})
	id, err := PathID(req)
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": bad})
		_, err := PathID(req)
		assert.Error(t, err, bad)
	}
}

func TestGoogleLoginStoresState(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.HandleGoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	assert.Len(t, state, 32)

	// A callback carrying a different state is rejected before any exchange.
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=forged&code=x", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.HandleGoogleCallback(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleDisabled(t *testing.T) {
	h := newTestHandler()
	h.Config = nil

	rec := httptest.NewRecorder()
	h.HandleGoogleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshRejectsMissingOrBadTokens(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.HandleRefreshToken(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh-token", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleRefreshToken(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh-token",
		strings.NewReader(`{"refresh_token":"not-a-jwt"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	access, err := h.Tokens.IssueAccess(1, 1)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.HandleRefreshToken(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh-token",
		strings.NewReader(`{"refresh_token":"`+access+`"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.ErrWrongTokenType.Error())
}

func TestLogoutWithoutSessionExpiresCookie(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionName, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestLoginValidatesBody(t *testing.T) {
	h := newTestHandler()

	for _, body := range []string{`{`, `{"email":"a@example.com"}`, `{"password":"12345678"}`} {
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}
