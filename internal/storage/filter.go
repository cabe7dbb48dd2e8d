package storage

import (
	"gorm.io/gorm"

	"github.com/s/leadBoard/internal/leadquery"
	"github.com/s/leadBoard/internal/models"
)

// filterScope applies f to a query over the leads table. Archived leads
// are excluded unless the filter names the archived status.
func filterScope(f leadquery.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(f.Statuses) > 0 {
			db = db.Where("leads.status IN ?", leadquery.StatusStrings(f.Statuses))
		} else {
			db = db.Where("leads.status <> ?", models.StatusArchived)
		}
		if len(f.FeeStatuses) > 0 {
			fee := make([]string, len(f.FeeStatuses))
			for i, s := range f.FeeStatuses {
				fee[i] = string(s)
			}
			db = db.Where("leads.fee_status IN ?", fee)
		}
		if len(f.CourseIDs) > 0 {
			db = db.Where("leads.course_id IN ?", f.CourseIDs)
		}
		if len(f.BatchIDs) > 0 {
			db = db.Where("leads.batch_id IN ?", f.BatchIDs)
		}
		if len(f.TrainerIDs) > 0 {
			db = db.Where("leads.trainer_id IN ?", f.TrainerIDs)
		}
		if len(f.AssigneeIDs) > 0 {
			db = db.Where("leads.assignee_id IN ?", f.AssigneeIDs)
		}
		if len(f.UnitIDs) > 0 {
			db = db.Where("leads.unit_id IN ?", f.UnitIDs)
		}
		if len(f.CardTypeIDs) > 0 {
			db = db.Where("leads.card_type_id IN ?", f.CardTypeIDs)
		}
		if f.Created.From != nil {
			db = db.Where("leads.created_at >= ?", *f.Created.From)
		}
		if f.Created.To != nil {
			db = db.Where("leads.created_at < ?", f.Created.To.AddDate(0, 0, 1))
		}
		if f.Search != "" {
			like := "%" + f.Search + "%"
			db = db.Where("(leads.name ILIKE ? OR leads.mobile_number ILIKE ? OR leads.email ILIKE ?)", like, like, like)
		}
		return db
	}
}
