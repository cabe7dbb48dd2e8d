package admin

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/leadBoard/internal/handlers"
)

type Service struct {
	handlers.Handler
}

// Middleware wraps a handler with an access check.
type Middleware func(next http.HandlerFunc) http.HandlerFunc

func (s *Service) invalidate(r *http.Request, keys ...string) {
	for _, key := range keys {
		if err := s.Cache.DeletePrefix(r.Context(), key); err != nil {
			slog.Warn("lookup cache invalidation", "key", key, "error", err)
		}
	}
}

// Register mounts the reference-data API. Any signed-in user may read;
// staff may write; users are managed by admins only.
func (s *Service) Register(r *mux.Router, staff, adminOnly Middleware) {
	mountResource(r, s, "/courses", courses, staff)
	r.HandleFunc("/courses/{id}/sub-courses", s.ListSubCourses).Methods(http.MethodGet)
	r.HandleFunc("/courses/{id}/sub-courses", staff(s.CreateSubCourse)).Methods(http.MethodPost)
	r.HandleFunc("/sub-courses/{id}", subCourses.get(s)).Methods(http.MethodGet)
	r.HandleFunc("/sub-courses/{id}", staff(subCourses.update(s))).Methods(http.MethodPut)
	r.HandleFunc("/sub-courses/{id}", staff(subCourses.remove(s))).Methods(http.MethodDelete)

	mountResource(r, s, "/api/trainers", trainers, staff)
	mountResource(r, s, "/api/batches", batches, staff)
	mountResource(r, s, "/api/units", units, staff)
	mountResource(r, s, "/api/card-types", cardTypes, staff)
	mountResource(r, s, "/api/meta-campaigns", metaCampaigns, staff)

	r.HandleFunc("/api/users", adminOnly(s.ListUsers)).Methods(http.MethodGet)
	r.HandleFunc("/api/users", adminOnly(s.CreateUser)).Methods(http.MethodPost)
	r.HandleFunc("/api/users/{id}", adminOnly(s.GetUser)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", adminOnly(s.UpdateUser)).Methods(http.MethodPut)
	r.HandleFunc("/api/users/{id}", adminOnly(s.DeleteUser)).Methods(http.MethodDelete)
	r.HandleFunc("/api/users/{id}/activity", adminOnly(s.UserActivity)).Methods(http.MethodGet)
}

func mountResource[T any](r *mux.Router, s *Service, path string, res resource[T], write Middleware) {
	r.HandleFunc(path, res.list(s)).Methods(http.MethodGet)
	r.HandleFunc(path, write(res.create(s))).Methods(http.MethodPost)
	r.HandleFunc(path+"/{id}", res.get(s)).Methods(http.MethodGet)
	r.HandleFunc(path+"/{id}", write(res.update(s))).Methods(http.MethodPut)
	r.HandleFunc(path+"/{id}", write(res.remove(s))).Methods(http.MethodDelete)
}
