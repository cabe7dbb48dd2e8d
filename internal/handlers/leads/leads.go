package leads

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/s/leadBoard/internal/cache"
	"github.com/s/leadBoard/internal/handlers"
	"github.com/s/leadBoard/internal/leadquery"
	"github.com/s/leadBoard/internal/mail"
	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/realtime"
	"github.com/s/leadBoard/internal/storage"
)

const boardTTL = 30 * time.Second

type Service struct {
	handlers.Handler
}

// ==========================================
// GET /leads
// ==========================================
func (s *Service) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter, err := leadquery.Parse(r.URL.Query())
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.list(w, r, filter)
}

// GET /leads/archived
func (s *Service) ListArchived(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	q.Del("status")
	q.Set("statuses", string(models.StatusArchived))
	filter, err := leadquery.Parse(q)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.list(w, r, filter)
}

func (s *Service) list(w http.ResponseWriter, r *http.Request, filter leadquery.Filter) {
	page := storage.ParsePage(r.URL.Query())
	leads, total, err := storage.ListLeads(s.DB, filter, page)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, storage.NewPaginatedResponse(leads, total, page))
}

// ==========================================
// POST /leads
// ==========================================
func (s *Service) CreateLead(w http.ResponseWriter, r *http.Request) {
	var lead models.Lead
	if err := handlers.DecodeJSON(w, r, &lead); err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if lead.Status != "" {
		st, err := models.ParseLeadStatus(string(lead.Status))
		if err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		lead.Status = st
	}

	if err := storage.CreateLead(s.DB, &lead, s.ActorID(r)); err != nil {
		handlers.StorageError(w, err)
		return
	}

	created, err := storage.GetLead(s.DB, lead.ID)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}

	s.notifyAssignee(created)
	s.changed(r, realtime.Event{
		Action:   realtime.ActionLeadCreated,
		LeadID:   created.ID,
		To:       string(created.Status),
		Position: created.Position,
	})
	handlers.WriteJSON(w, http.StatusCreated, created)
}

// GET /leads/{id}
func (s *Service) GetLead(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	lead, err := storage.GetLead(s.DB, id)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, lead)
}

// PUT /leads/{id}
func (s *Service) UpdateLead(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req storage.LeadUpdate
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Status != nil {
		st, err := models.ParseLeadStatus(string(*req.Status))
		if err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Status = &st
	}

	before, after, err := storage.UpdateLead(s.DB, id, req, s.ActorID(r))
	if err != nil {
		handlers.StorageError(w, err)
		return
	}

	lead, err := storage.GetLead(s.DB, after.ID)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}

	if assigneeChanged(before.AssigneeID, after.AssigneeID) {
		s.notifyAssignee(lead)
	}
	ev := realtime.Event{Action: realtime.ActionLeadUpdated, LeadID: id, To: string(lead.Status), Position: lead.Position}
	if before.Status != after.Status {
		ev.Action = realtime.ActionLeadMoved
		ev.From = string(before.Status)
	}
	s.changed(r, ev)
	handlers.WriteJSON(w, http.StatusOK, lead)
}

// ==========================================
// PATCH /leads/{id}/status (board drag and drop)
// ==========================================
func (s *Service) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Status   string `json:"status"`
		Position *int   `json:"position"`
	}
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	status, err := models.ParseLeadStatus(req.Status)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	position := -1
	if req.Position != nil {
		position = *req.Position
	}

	lead, from, err := storage.MoveLead(s.DB, id, status, position, s.ActorID(r))
	if err != nil {
		handlers.StorageError(w, err)
		return
	}

	s.changed(r, realtime.Event{
		Action:   realtime.ActionLeadMoved,
		LeadID:   id,
		From:     string(from),
		To:       string(lead.Status),
		Position: lead.Position,
	})
	handlers.WriteJSON(w, http.StatusOK, lead)
}

// PATCH /leads/{id}/archive
func (s *Service) ArchiveLead(w http.ResponseWriter, r *http.Request) {
	s.setArchived(w, r, true)
}

// PATCH /leads/{id}/restore
func (s *Service) RestoreLead(w http.ResponseWriter, r *http.Request) {
	s.setArchived(w, r, false)
}

func (s *Service) setArchived(w http.ResponseWriter, r *http.Request, archive bool) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var lead models.Lead
	action := realtime.ActionLeadArchived
	if archive {
		lead, err = storage.ArchiveLead(s.DB, id, s.ActorID(r))
	} else {
		action = realtime.ActionLeadRestored
		lead, err = storage.RestoreLead(s.DB, id, s.ActorID(r))
	}
	if err != nil {
		handlers.StorageError(w, err)
		return
	}

	s.changed(r, realtime.Event{Action: action, LeadID: id, To: string(lead.Status), Position: lead.Position})
	handlers.WriteJSON(w, http.StatusOK, lead)
}

// ==========================================
// DELETE /leads/{id} {"reason": "..."}
// ==========================================
func (s *Service) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := handlers.DecodeJSON(w, r, &req); err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Reason == "" {
		req.Reason = r.URL.Query().Get("reason")
	}

	if err := storage.DeleteLead(s.DB, id, req.Reason, s.ActorID(r)); err != nil {
		handlers.StorageError(w, err)
		return
	}

	s.changed(r, realtime.Event{Action: realtime.ActionLeadDeleted, LeadID: id})
	handlers.WriteJSON(w, http.StatusOK, map[string]string{"message": "Lead deleted successfully"})
}

// GET /leads/board
func (s *Service) Board(w http.ResponseWriter, r *http.Request) {
	filter, err := leadquery.Parse(r.URL.Query())
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := cache.BoardPrefix + filter.Values().Encode()
	var columns []models.BoardColumn
	if found, err := s.Cache.GetJSON(r.Context(), key, &columns); err != nil {
		slog.Warn("board cache read", "error", err)
	} else if found {
		handlers.WriteJSON(w, http.StatusOK, columns)
		return
	}

	columns, err = storage.Board(s.DB, filter)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	if err := s.Cache.SetJSON(r.Context(), key, columns, boardTTL); err != nil {
		slog.Warn("board cache write", "error", err)
	}
	handlers.WriteJSON(w, http.StatusOK, columns)
}

// GET /leads/{id}/history
func (s *Service) History(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r)
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	history, err := storage.History(s.DB, id)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, history)
}

// changed invalidates cached boards and tells connected clients.
func (s *Service) changed(r *http.Request, ev realtime.Event) {
	s.Cache.InvalidateBoard(r.Context())
	if actor := s.ActorID(r); actor != nil {
		ev.UserID = *actor
	}
	s.Hub.Broadcast(ev)
}

func (s *Service) notifyAssignee(lead models.Lead) {
	if lead.Assignee == nil || strings.TrimSpace(lead.Assignee.Email) == "" {
		return
	}
	s.Mailer.LeadAssigned(lead.Assignee.Email, mail.LeadAssignment{
		AssigneeName: lead.Assignee.Name,
		LeadID:       lead.ID,
		LeadName:     lead.Name,
		MobileNumber: lead.MobileNumber,
		Course:       lead.Course.Title,
		Status:       string(lead.Status),
	})
}

func assigneeChanged(before, after *uint) bool {
	if after == nil {
		return false
	}
	return before == nil || *before != *after
}
