// Package personal serves the signed-in user's own slice of the pipeline.
package personal

import (
	"net/http"

	"github.com/s/leadBoard/internal/handlers"
	"github.com/s/leadBoard/internal/leadquery"
	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/storage"
)

type Service struct {
	handlers.Handler
}

// myFilter reads the usual lead filter and pins it to the caller.
func (s *Service) myFilter(w http.ResponseWriter, r *http.Request) (leadquery.Filter, bool) {
	actor := s.ActorID(r)
	if actor == nil {
		handlers.JSONError(w, "authorization token required", http.StatusUnauthorized)
		return leadquery.Filter{}, false
	}
	filter, err := leadquery.Parse(r.URL.Query())
	if err != nil {
		handlers.JSONError(w, err.Error(), http.StatusBadRequest)
		return leadquery.Filter{}, false
	}
	filter.AssigneeIDs = []uint{*actor}
	return filter, true
}

// GET /api/profile/leads
func (s *Service) MyLeads(w http.ResponseWriter, r *http.Request) {
	filter, ok := s.myFilter(w, r)
	if !ok {
		return
	}
	page := storage.ParsePage(r.URL.Query())
	leads, total, err := storage.ListLeads(s.DB, filter, page)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, storage.NewPaginatedResponse(leads, total, page))
}

type statusCount struct {
	Status models.LeadStatus `json:"status"`
	Count  int64             `json:"count"`
}

// GET /api/profile/stats
// Counts of the caller's leads per active status, in pipeline order.
func (s *Service) MyStats(w http.ResponseWriter, r *http.Request) {
	filter, ok := s.myFilter(w, r)
	if !ok {
		return
	}
	counts, err := storage.StatusCounts(s.DB, filter)
	if err != nil {
		handlers.StorageError(w, err)
		return
	}

	var total int64
	out := make([]statusCount, 0, len(models.ActiveStatuses()))
	for _, st := range models.ActiveStatuses() {
		out = append(out, statusCount{Status: st, Count: counts[st]})
		total += counts[st]
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total":    total,
		"statuses": out,
	})
}
