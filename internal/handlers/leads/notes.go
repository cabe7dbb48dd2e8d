package leads

import (
	"net/http"

	"github.com/s/leadBoard/internal/handlers"
	"github.com/s/leadBoard/internal/storage"
)

// --- NOTES ---

// POST /leads/{id}/notes
func (s *Service) AddNote(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	note, err := storage.AddNote(s.DB, id, s.ActorID(r), req.Text)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, note)
}

// GET /leads/{id}/notes
func (s *Service) ListNotes(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	notes, err := storage.Notes(s.DB, id)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, notes)
}
