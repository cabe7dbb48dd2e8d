package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/cache"
	"github.com/s/leadBoard/internal/config"
	"github.com/s/leadBoard/internal/mail"
	"github.com/s/leadBoard/internal/middleware"
	"github.com/s/leadBoard/internal/realtime"
	"github.com/s/leadBoard/internal/storage"
)

const (
	sessionName     = "session"
	maxJSONBodySize = 1 << 20
)

type Handler struct {
	DB     *gorm.DB
	Store  *sessions.CookieStore
	Config *oauth2.Config // nil when Google sign-in is not configured
	Tokens *auth.Manager
	Cache  *cache.Cache
	Mailer mail.Notifier
	Hub    realtime.Broadcaster
	Env    config.Config
}

// NewHandler wires the required dependencies; cache, mailer and hub start
// disabled and may be replaced by the caller.
func NewHandler(db *gorm.DB, store *sessions.CookieStore, oauthConfig *oauth2.Config, tokens *auth.Manager, cfg config.Config) *Handler {
	return &Handler{
		DB:     db,
		Store:  store,
		Config: oauthConfig,
		Tokens: tokens,
		Cache:  &cache.Cache{},
		Mailer: mail.Noop{},
		Hub:    nopHub{},
		Env:    cfg,
	}
}

type nopHub struct{}

func (nopHub) Broadcast(realtime.Event) {}

// ActorID returns the authenticated user's id, or nil outside Authenticate.
func (h *Handler) ActorID(r *http.Request) *uint {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return nil
	}
	id := claims.UserID
	return &id
}

func WriteJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func JSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, map[string]string{"error": message})
}

// DecodeJSON reads a size-limited JSON body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

// PathID parses the {id} route variable.
func PathID(r *http.Request) (uint, error) {
	raw := mux.Vars(r)["id"]
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(n), nil
}

// StorageError maps storage errors onto HTTP statuses.
func StorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrLeadNotFound),
		errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		JSONError(w, "not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrInvalidStatus),
		errors.Is(err, storage.ErrMissingFields),
		errors.Is(err, storage.ErrUnknownReference),
		errors.Is(err, storage.ErrReasonRequired),
		errors.Is(err, storage.ErrInvalidInput):
		JSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrInUse):
		JSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		JSONError(w, "a record with the same unique value already exists", http.StatusConflict)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		JSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, storage.ErrUserInactive):
		JSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, storage.ErrSessionNotFound):
		JSONError(w, err.Error(), http.StatusUnauthorized)
	default:
		slog.Error("database error", "error", err)
		JSONError(w, "Database error", http.StatusInternalServerError)
	}
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
