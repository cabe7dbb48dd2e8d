package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/s/leadBoard/internal/handlers"
	"github.com/s/leadBoard/internal/storage"
)

const (
	lookupPrefix = "lookup:"
	lookupTTL    = 5 * time.Minute
)

// resource describes one reference table exposed as list/get/create/update/delete.
type resource[T any] struct {
	name     string
	order    string
	preload  []string
	search   []string
	validate func(db *gorm.DB, item *T) error
	inUse    []storage.RefCheck
	// embeddedIn lists resources whose cached lists include this one.
	embeddedIn []string
}

func (res resource[T]) cacheKey() string { return lookupPrefix + res.name }

// staleKeys are the cache entries a write to this resource makes stale.
func (res resource[T]) staleKeys() []string {
	keys := []string{res.cacheKey()}
	for _, name := range res.embeddedIn {
		keys = append(keys, lookupPrefix+name)
	}
	return keys
}

func (res resource[T]) query(db *gorm.DB) *gorm.DB {
	for _, p := range res.preload {
		db = db.Preload(p)
	}
	return db
}

func (res resource[T]) list(s *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search := strings.TrimSpace(r.URL.Query().Get("search"))
		cacheable := search == ""

		items := []T{}
		if cacheable {
			if found, err := s.Cache.GetJSON(r.Context(), res.cacheKey(), &items); err == nil && found {
				handlers.WriteJSON(w, http.StatusOK, items)
				return
			}
		}

		db := res.query(s.DB.Model(new(T)))
		if search != "" && len(res.search) > 0 {
			like := "%" + search + "%"
			conds := make([]string, len(res.search))
			args := make([]interface{}, len(res.search))
			for i, col := range res.search {
				conds[i] = col + " ILIKE ?"
				args[i] = like
			}
			db = db.Where("("+strings.Join(conds, " OR ")+")", args...)
		}
		if err := db.Order(res.order).Find(&items).Error; err != nil {
			handlers.StorageError(w, err)
			return
		}

		if cacheable {
			if err := s.Cache.SetJSON(r.Context(), res.cacheKey(), items, lookupTTL); err != nil {
				slog.Warn("lookup cache write", "resource", res.name, "error", err)
			}
		}
		handlers.WriteJSON(w, http.StatusOK, items)
	}
}

func (res resource[T]) get(s *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := handlers.PathID(r)
		if err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		item, err := res.load(s.DB, id)
		if err != nil {
			res.fail(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, item)
	}
}

func (res resource[T]) create(s *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item T
		if err := handlers.DecodeJSON(w, r, &item); err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := res.check(s.DB, &item); err != nil {
			handlers.StorageError(w, err)
			return
		}
		if err := s.DB.Omit(clause.Associations).Create(&item).Error; err != nil {
			handlers.StorageError(w, err)
			return
		}
		s.invalidate(r, res.staleKeys()...)
		handlers.WriteJSON(w, http.StatusCreated, item)
	}
}

func (res resource[T]) update(s *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := handlers.PathID(r)
		if err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		var raw json.RawMessage
		if err := handlers.DecodeJSON(w, r, &raw); err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := matchesPathID(raw, id); err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		item, err := res.load(s.DB, id)
		if err != nil {
			res.fail(w, err)
			return
		}
		// Fields missing from the body keep their stored values.
		if err := json.Unmarshal(raw, &item); err != nil {
			handlers.JSONError(w, "invalid JSON payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := res.check(s.DB, &item); err != nil {
			handlers.StorageError(w, err)
			return
		}

		result := s.DB.Model(new(T)).
			Where("id = ?", id).
			Select("*").
			Omit(clause.Associations, "id", "created_at", "deleted_at").
			Updates(&item)
		if result.Error != nil {
			handlers.StorageError(w, result.Error)
			return
		}
		if result.RowsAffected == 0 {
			handlers.JSONError(w, res.name+" not found", http.StatusNotFound)
			return
		}
		s.invalidate(r, res.staleKeys()...)

		saved, err := res.load(s.DB, id)
		if err != nil {
			res.fail(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, saved)
	}
}

func (res resource[T]) remove(s *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := handlers.PathID(r)
		if err != nil {
			handlers.JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := storage.EnsureUnused(s.DB, id, res.inUse...); err != nil {
			handlers.StorageError(w, err)
			return
		}

		result := s.DB.Delete(new(T), id)
		if result.Error != nil {
			handlers.StorageError(w, result.Error)
			return
		}
		if result.RowsAffected == 0 {
			handlers.JSONError(w, res.name+" not found", http.StatusNotFound)
			return
		}
		s.invalidate(r, res.staleKeys()...)
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"message": res.name + " deleted successfully"})
	}
}

// matchesPathID rejects a body whose "id" names a different record than the
// URL. A missing id is fine.
func matchesPathID(raw json.RawMessage, id uint) error {
	var body struct {
		ID *uint `json:"id"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	if body.ID != nil && *body.ID != id {
		return fmt.Errorf("id %d in body does not match id %d in URL", *body.ID, id)
	}
	return nil
}

func (res resource[T]) load(db *gorm.DB, id uint) (T, error) {
	var item T
	err := res.query(db).First(&item, id).Error
	return item, err
}

func (res resource[T]) check(db *gorm.DB, item *T) error {
	if res.validate == nil {
		return nil
	}
	return res.validate(db, item)
}

func (res resource[T]) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		handlers.JSONError(w, res.name+" not found", http.StatusNotFound)
		return
	}
	handlers.StorageError(w, err)
}
