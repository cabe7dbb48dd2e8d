package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/middleware"
	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/storage"
)

type tokenResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         models.User `json:"user"`
}

// POST /auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		JSONError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user, err := storage.FindUserByEmail(h.DB, req.Email)
	if errors.Is(err, storage.ErrUserNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		JSONError(w, "invalid email or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		StorageError(w, err)
		return
	}
	if !user.IsActive {
		JSONError(w, storage.ErrUserInactive.Error(), http.StatusForbidden)
		return
	}

	resp, err := h.startSession(w, r, user, "login")
	if err != nil {
		slog.Error("start session", "user_id", user.ID, "error", err)
		JSONError(w, "could not sign in", http.StatusInternalServerError)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// POST /auth/refresh-token
func (h *Handler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	raw := h.refreshTokenFrom(r)
	if raw == "" {
		JSONError(w, "refresh token required", http.StatusUnauthorized)
		return
	}

	claims, err := h.Tokens.Parse(raw, auth.TypeRefresh)
	if err != nil {
		JSONError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if _, err := storage.ValidSession(h.DB, claims.ID, time.Now()); err != nil {
		StorageError(w, err)
		return
	}

	user, err := storage.FindUser(h.DB, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			JSONError(w, "user no longer exists", http.StatusUnauthorized)
			return
		}
		StorageError(w, err)
		return
	}
	if !user.IsActive {
		JSONError(w, storage.ErrUserInactive.Error(), http.StatusUnauthorized)
		return
	}

	access, err := h.Tokens.IssueAccess(user.ID, user.RoleID)
	if err != nil {
		JSONError(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	if err := storage.LogUserAction(h.DB, user.ID, "refresh", r.RemoteAddr); err != nil {
		slog.Warn("user log", "error", err)
	}
	WriteJSON(w, http.StatusOK, map[string]string{"token": access})
}

// POST /auth/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var userID uint

	if raw := h.refreshTokenFrom(r); raw != "" {
		if claims, err := h.Tokens.Parse(raw, auth.TypeRefresh); err == nil {
			userID = claims.UserID
			if err := storage.RevokeSession(h.DB, claims.ID, time.Now()); err != nil {
				slog.Error("revoke session", "error", err)
			}
		}
	}

	if header := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(header), "bearer ") {
		if claims, err := h.Tokens.Parse(strings.TrimSpace(header[7:]), auth.TypeAccess); err == nil {
			userID = claims.UserID
			if err := h.Cache.RevokeToken(r.Context(), claims.ID, middleware.RemainingTTL(claims)); err != nil {
				slog.Warn("revoke access token", "error", err)
			}
		}
	}

	session, _ := h.Store.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Warn("expire session cookie", "error", err)
	}

	if userID != 0 {
		if err := storage.LogUserAction(h.DB, userID, "logout", r.RemoteAddr); err != nil {
			slog.Warn("user log", "error", err)
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// GET /auth/google/login
func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.Config == nil {
		JSONError(w, "Google sign-in is not configured", http.StatusNotFound)
		return
	}
	state, err := auth.NewState()
	if err != nil {
		JSONError(w, "could not start sign-in", http.StatusInternalServerError)
		return
	}

	session, _ := h.Store.Get(r, sessionName)
	session.Values["oauth_state"] = state
	if err := session.Save(r, w); err != nil {
		JSONError(w, "Session error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, h.Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GET /auth/google/callback
func (h *Handler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.Config == nil {
		JSONError(w, "Google sign-in is not configured", http.StatusNotFound)
		return
	}

	session, _ := h.Store.Get(r, sessionName)
	want := toString(session.Values["oauth_state"])
	delete(session.Values, "oauth_state")
	if want == "" || r.URL.Query().Get("state") != want {
		JSONError(w, "Invalid state", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	token, err := h.Config.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		JSONError(w, "Token exchange error", http.StatusBadRequest)
		return
	}

	resp, err := h.Config.Client(ctx, token).Get(auth.GoogleUserInfoURL)
	if err != nil {
		JSONError(w, "Google API error", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	var profile storage.GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil || profile.GoogleID == "" {
		JSONError(w, "JSON decode error", http.StatusBadGateway)
		return
	}

	user, err := storage.SaveUser(h.DB, profile)
	if err != nil {
		StorageError(w, err)
		return
	}

	out, err := h.startSession(w, r, user, "login_google")
	if err != nil {
		slog.Error("start session", "user_id", user.ID, "error", err)
		JSONError(w, "could not sign in", http.StatusInternalServerError)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// startSession issues the token pair, records the refresh session and keeps
// the refresh token in the signed cookie as well.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user models.User, action string) (tokenResponse, error) {
	access, err := h.Tokens.IssueAccess(user.ID, user.RoleID)
	if err != nil {
		return tokenResponse{}, err
	}
	refresh, jti, expiresAt, err := h.Tokens.IssueRefresh(user.ID, user.RoleID)
	if err != nil {
		return tokenResponse{}, err
	}
	if err := storage.CreateSession(h.DB, jti, user.ID, expiresAt); err != nil {
		return tokenResponse{}, err
	}

	session, _ := h.Store.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["refresh_token"] = refresh
	session.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Env.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.Tokens.RefreshTTL().Seconds()),
	}
	if err := session.Save(r, w); err != nil {
		return tokenResponse{}, err
	}

	if err := storage.LogUserAction(h.DB, user.ID, action, r.RemoteAddr); err != nil {
		slog.Warn("user log", "error", err)
	}
	slog.Info("user signed in", "user_id", user.ID, "method", action)

	return tokenResponse{Token: access, RefreshToken: refresh, User: user}, nil
}

// refreshTokenFrom reads {"refresh_token": ...} from the body, falling back to the cookie.
func (h *Handler) refreshTokenFrom(r *http.Request) string {
	if r.Body != nil && r.ContentLength != 0 {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBodySize)).Decode(&body); err == nil && body.RefreshToken != "" {
			return body.RefreshToken
		}
	}
	session, _ := h.Store.Get(r, sessionName)
	return toString(session.Values["refresh_token"])
}
