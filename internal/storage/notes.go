package storage

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/s/leadBoard/internal/leadquery"
	"github.com/s/leadBoard/internal/models"
)

const maxNoteLength = 4000

// AddNote records a free-text note on the lead's timeline.
func AddNote(db *gorm.DB, leadID uint, actorID *uint, text string) (models.LeadHistory, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.LeadHistory{}, fmt.Errorf("%w: text", ErrMissingFields)
	}
	if len(text) > maxNoteLength {
		return models.LeadHistory{}, fmt.Errorf("%w: note longer than %d characters", ErrInvalidInput, maxNoteLength)
	}

	var lead models.Lead
	if err := db.Select("id", "status").First(&lead, leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.LeadHistory{}, ErrLeadNotFound
		}
		return models.LeadHistory{}, err
	}

	if err := writeHistory(db, leadID, actorID, models.ActionNote, "", "", map[string]any{"text": text}); err != nil {
		return models.LeadHistory{}, err
	}

	var note models.LeadHistory
	err := db.Preload("User").
		Where("lead_id = ? AND action = ?", leadID, models.ActionNote).
		Order("id DESC").
		First(&note).Error
	return note, err
}

// Notes lists the notes of a lead, newest first.
func Notes(db *gorm.DB, leadID uint) ([]models.LeadHistory, error) {
	var count int64
	if err := db.Model(&models.Lead{}).Where("id = ?", leadID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrLeadNotFound
	}
	notes := []models.LeadHistory{}
	err := db.Preload("User").
		Where("lead_id = ? AND action = ?", leadID, models.ActionNote).
		Order("created_at DESC, id DESC").
		Find(&notes).Error
	return notes, err
}

// StatusCounts counts filtered leads per status.
func StatusCounts(db *gorm.DB, f leadquery.Filter) (map[models.LeadStatus]int64, error) {
	var rows []struct {
		Status models.LeadStatus
		Count  int64
	}
	err := db.Model(&models.Lead{}).
		Scopes(filterScope(f)).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.LeadStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
