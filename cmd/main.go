package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/cache"
	"github.com/s/leadBoard/internal/config"
	"github.com/s/leadBoard/internal/database"
	"github.com/s/leadBoard/internal/handlers"
	"github.com/s/leadBoard/internal/handlers/admin"
	"github.com/s/leadBoard/internal/handlers/leads"
	"github.com/s/leadBoard/internal/handlers/personal"
	"github.com/s/leadBoard/internal/mail"
	"github.com/s/leadBoard/internal/middleware"
	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/realtime"
	"github.com/s/leadBoard/internal/storage"
)

const sessionPurgeInterval = time.Hour

func main() {
	// ---------------------------
	// 0. Configuration and logging
	// ---------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	// ---------------------------
	// 1. Database
	// ---------------------------
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		slog.Error("migration", "error", err)
		os.Exit(1)
	}
	if err := database.Seed(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		slog.Error("seed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------
	// 2. Optional services
	// ---------------------------
	rc := cache.Connect(ctx, cfg.RedisAddr)
	defer rc.Close()

	hub := realtime.NewHub(cfg.AllowedOrigins)
	defer hub.Close()

	// ---------------------------
	// 3. Sessions and handlers
	// ---------------------------
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	var oauthConfig = auth.InitGoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if !cfg.GoogleEnabled() {
		slog.Info("google sign-in disabled")
		oauthConfig = nil
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	h := handlers.NewHandler(db, store, oauthConfig, tokens, cfg)
	h.Cache = rc
	h.Mailer = mail.New(cfg.SMTP)
	h.Hub = hub

	go purgeSessions(ctx, h)

	// ---------------------------
	// 4. HTTP server
	// ---------------------------
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(h, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

func setupLogger(cfg config.Config) {
	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

// newRouter mounts every route. Anything outside /auth and /uploads requires
// a valid access token.
func newRouter(h *handlers.Handler, hub *realtime.Hub) http.Handler {
	leadService := &leads.Service{Handler: *h}
	adminService := &admin.Service{Handler: *h}
	personalService := &personal.Service{Handler: *h}

	staff := middleware.RequiredRole(models.RoleAdmin, models.RoleManager)
	adminOnly := middleware.RequiredRole(models.RoleAdmin)

	r := mux.NewRouter()

	// --- Public ---
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.Env.UploadDir))))
	r.HandleFunc("/auth/login", h.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh-token", h.HandleRefreshToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", h.HandleLogout).Methods(http.MethodPost)
	r.HandleFunc("/auth/google/login", h.HandleGoogleLogin).Methods(http.MethodGet)
	r.HandleFunc("/auth/google/callback", h.HandleGoogleCallback).Methods(http.MethodGet)

	// --- Signed in ---
	api := r.NewRoute().Subrouter()
	api.Use(middleware.Authenticate(h.Tokens, h.Cache))

	api.HandleFunc("/api/profile", h.HandleProfile).Methods(http.MethodGet)
	api.HandleFunc("/api/profile", h.HandleUpdateProfile).Methods(http.MethodPut)
	api.HandleFunc("/api/profile/image", h.HandleProfileImage).Methods(http.MethodPost)
	api.HandleFunc("/api/profile/leads", personalService.MyLeads).Methods(http.MethodGet)
	api.HandleFunc("/api/profile/stats", personalService.MyStats).Methods(http.MethodGet)

	api.HandleFunc("/ws/board", func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.ClaimsFromContext(r.Context())
		hub.ServeWS(w, r, claims.UserID)
	}).Methods(http.MethodGet)

	// Static lead paths go before /leads/{id}.
	api.HandleFunc("/leads", leadService.ListLeads).Methods(http.MethodGet)
	api.HandleFunc("/leads", leadService.CreateLead).Methods(http.MethodPost)
	api.HandleFunc("/leads/board", leadService.Board).Methods(http.MethodGet)
	api.HandleFunc("/leads/archived", leadService.ListArchived).Methods(http.MethodGet)
	api.HandleFunc("/leads/sample-csv", leadService.SampleCSV).Methods(http.MethodGet)
	api.HandleFunc("/leads/export", leadService.Export).Methods(http.MethodGet)
	api.HandleFunc("/leads/bulk-upload", staff(leadService.BulkUpload)).Methods(http.MethodPost)
	api.HandleFunc("/leads/{id:[0-9]+}", leadService.GetLead).Methods(http.MethodGet)
	api.HandleFunc("/leads/{id:[0-9]+}", leadService.UpdateLead).Methods(http.MethodPut)
	api.HandleFunc("/leads/{id:[0-9]+}", staff(leadService.DeleteLead)).Methods(http.MethodDelete)
	api.HandleFunc("/leads/{id:[0-9]+}/status", leadService.UpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/leads/{id:[0-9]+}/archive", leadService.ArchiveLead).Methods(http.MethodPatch)
	api.HandleFunc("/leads/{id:[0-9]+}/restore", leadService.RestoreLead).Methods(http.MethodPatch)
	api.HandleFunc("/leads/{id:[0-9]+}/history", leadService.History).Methods(http.MethodGet)
	api.HandleFunc("/leads/{id:[0-9]+}/notes", leadService.ListNotes).Methods(http.MethodGet)
	api.HandleFunc("/leads/{id:[0-9]+}/notes", leadService.AddNote).Methods(http.MethodPost)

	adminService.Register(api, staff, adminOnly)

	return middleware.Cors(h.Env.AllowedOrigins)(r)
}

func purgeSessions(ctx context.Context, h *handlers.Handler) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := storage.PurgeSessions(h.DB, now)
			if err != nil {
				slog.Error("purge sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired sessions", "count", n)
			}
		}
	}
}
