package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/s/leadBoard/internal/leadquery"
	"github.com/s/leadBoard/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ValidateLead checks the fields every new lead must carry.
func ValidateLead(l *models.Lead) error {
	l.Name = strings.TrimSpace(l.Name)
	l.MobileNumber = strings.TrimSpace(l.MobileNumber)
	l.Email = strings.TrimSpace(l.Email)

	var missing []string
	if l.Name == "" {
		missing = append(missing, "name")
	}
	if l.MobileNumber == "" {
		missing = append(missing, "mobile_number")
	}
	if l.CourseID == 0 {
		missing = append(missing, "course_id")
	}
	if l.Status == "" {
		missing = append(missing, "status")
	}
	if l.UnitID == 0 {
		missing = append(missing, "unit_id")
	}
	if l.CardTypeID == 0 {
		missing = append(missing, "card_type_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	if !l.Status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, l.Status)
	}
	if l.FeeStatus == "" {
		l.FeeStatus = models.FeePending
	}
	if !l.FeeStatus.Valid() {
		return fmt.Errorf("unknown fee status %q", l.FeeStatus)
	}
	return nil
}

// CheckReferences verifies that every id the lead points at exists.
func CheckReferences(db *gorm.DB, l *models.Lead) error {
	type ref struct {
		name  string
		model interface{}
		id    *uint
	}
	refs := []ref{
		{"course_id", &models.Course{}, &l.CourseID},
		{"unit_id", &models.BusinessUnit{}, &l.UnitID},
		{"card_type_id", &models.CardType{}, &l.CardTypeID},
		{"sub_course_id", &models.SubCourse{}, l.SubCourseID},
		{"batch_id", &models.Batch{}, l.BatchID},
		{"trainer_id", &models.Trainer{}, l.TrainerID},
		{"assignee_id", &models.User{}, l.AssigneeID},
		{"meta_campaign_id", &models.MetaCampaign{}, l.MetaCampaignID},
	}
	for _, r := range refs {
		if r.id == nil || *r.id == 0 {
			continue
		}
		var count int64
		if err := db.Model(r.model).Where("id = ?", *r.id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s %d", ErrUnknownReference, r.name, *r.id)
		}
	}
	return nil
}

// CreateLead validates and inserts a lead at the end of its column.
func CreateLead(db *gorm.DB, lead *models.Lead, actorID *uint) error {
	if err := ValidateLead(lead); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := CheckReferences(tx, lead); err != nil {
			return err
		}
		pos, err := nextPosition(tx, lead.Status)
		if err != nil {
			return err
		}
		lead.ID = 0
		lead.Position = pos
		lead.CreatedByID = actorID
		if err := tx.Omit(clause.Associations).Create(lead).Error; err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		return writeHistory(tx, lead.ID, actorID, models.ActionCreated, "", lead.Status, nil)
	})
}

// GetLead loads a lead with its references.
func GetLead(db *gorm.DB, id uint) (models.Lead, error) {
	var lead models.Lead
	err := withReferences(db).First(&lead, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Lead{}, ErrLeadNotFound
	}
	return lead, err
}

// ListLeads returns one page of filtered leads, newest first, and the total.
func ListLeads(db *gorm.DB, f leadquery.Filter, p Page) ([]models.Lead, int64, error) {
	var total int64
	if err := db.Model(&models.Lead{}).Scopes(filterScope(f)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	leads := []models.Lead{}
	err := withReferences(db.Model(&models.Lead{})).
		Scopes(filterScope(f), p.Scope).
		Order("leads.created_at DESC, leads.id DESC").
		Find(&leads).Error
	return leads, total, err
}

// AllLeads returns every lead matching the filter, for exports.
func AllLeads(db *gorm.DB, f leadquery.Filter) ([]models.Lead, error) {
	leads := []models.Lead{}
	err := withReferences(db.Model(&models.Lead{})).
		Scopes(filterScope(f)).
		Order("leads.id ASC").
		Find(&leads).Error
	return leads, err
}

// LeadUpdate is a partial edit; nil fields are left alone. For the optional
// references a zero id clears the link.
type LeadUpdate struct {
	Name         *string            `json:"name"`
	MobileNumber *string            `json:"mobile_number"`
	Email        *string            `json:"email"`
	Role         *string            `json:"role"`
	Company      *string            `json:"company"`
	Location     *string            `json:"location"`
	Source       *string            `json:"source"`
	Comments     *string            `json:"comments"`
	Status       *models.LeadStatus `json:"status"`
	FeeStatus    *models.FeeStatus  `json:"fee_status"`
	TotalFee     *float64           `json:"total_fee"`
	PaidFee      *float64           `json:"paid_fee"`
	CourseID     *uint              `json:"course_id"`
	UnitID       *uint              `json:"unit_id"`
	CardTypeID   *uint              `json:"card_type_id"`
	SubCourseID  *uint              `json:"sub_course_id"`
	BatchID      *uint              `json:"batch_id"`
	TrainerID    *uint              `json:"trainer_id"`
	AssigneeID   *uint              `json:"assignee_id"`
	MetaCampaign *uint              `json:"meta_campaign_id"`
}

// UpdateLead applies a partial edit and returns the lead before and after.
func UpdateLead(db *gorm.DB, id uint, u LeadUpdate, actorID *uint) (before, after models.Lead, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&before, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeadNotFound
			}
			return err
		}
		after = before

		setStr := func(dst *string, src *string) {
			if src != nil {
				*dst = *src
			}
		}
		setStr(&after.Name, u.Name)
		setStr(&after.MobileNumber, u.MobileNumber)
		setStr(&after.Email, u.Email)
		setStr(&after.Role, u.Role)
		setStr(&after.Company, u.Company)
		setStr(&after.Location, u.Location)
		setStr(&after.Source, u.Source)
		setStr(&after.Comments, u.Comments)
		if u.Status != nil {
			after.Status = *u.Status
		}
		if u.FeeStatus != nil {
			after.FeeStatus = *u.FeeStatus
		}
		if u.TotalFee != nil {
			after.TotalFee = *u.TotalFee
		}
		if u.PaidFee != nil {
			after.PaidFee = *u.PaidFee
		}
		if u.CourseID != nil {
			after.CourseID = *u.CourseID
		}
		if u.UnitID != nil {
			after.UnitID = *u.UnitID
		}
		if u.CardTypeID != nil {
			after.CardTypeID = *u.CardTypeID
		}
		after.SubCourseID = optionalRef(after.SubCourseID, u.SubCourseID)
		after.BatchID = optionalRef(after.BatchID, u.BatchID)
		after.TrainerID = optionalRef(after.TrainerID, u.TrainerID)
		after.AssigneeID = optionalRef(after.AssigneeID, u.AssigneeID)
		after.MetaCampaignID = optionalRef(after.MetaCampaignID, u.MetaCampaign)

		if err := ValidateLead(&after); err != nil {
			return err
		}
		if err := CheckReferences(tx, &after); err != nil {
			return err
		}

		if after.Status != before.Status {
			if after.Status == models.StatusArchived {
				after.PreviousStatus = before.Status
			} else if before.Status == models.StatusArchived {
				after.PreviousStatus = ""
			}
			pos, err := nextPosition(tx, after.Status)
			if err != nil {
				return err
			}
			after.Position = pos
		}

		if err := tx.Omit(clause.Associations).Save(&after).Error; err != nil {
			return fmt.Errorf("update lead %d: %w", id, err)
		}

		if after.Status != before.Status {
			return writeHistory(tx, id, actorID, models.ActionStatusChanged, before.Status, after.Status, nil)
		}
		return writeHistory(tx, id, actorID, models.ActionUpdated, "", "", nil)
	})
	return before, after, err
}

// MoveLead puts the lead at index inside the destination column, counted
// over the column's other leads in board order, and renumbers the affected
// columns 0..n-1 so stored positions match what the board shows. A negative
// or too large index appends. Concurrent moves of the same lead are
// last-write-wins.
func MoveLead(db *gorm.DB, id uint, to models.LeadStatus, index int, actorID *uint) (models.Lead, models.LeadStatus, error) {
	if !to.Valid() {
		return models.Lead{}, "", fmt.Errorf("%w: %s", ErrInvalidStatus, to)
	}
	var lead models.Lead
	var from models.LeadStatus
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lead, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeadNotFound
			}
			return err
		}
		from = lead.Status

		ids, err := columnIDs(tx, to, id)
		if err != nil {
			return err
		}
		if index < 0 || index > len(ids) {
			index = len(ids)
		}
		ids = append(ids, 0)
		copy(ids[index+1:], ids[index:])
		ids[index] = id

		updates := map[string]interface{}{
			"status":     to,
			"position":   index,
			"updated_at": time.Now(),
		}
		switch {
		case to == models.StatusArchived && from != models.StatusArchived:
			updates["previous_status"] = from
		case from == models.StatusArchived && to != models.StatusArchived:
			updates["previous_status"] = ""
		}
		if err := tx.Model(&lead).UpdateColumns(updates).Error; err != nil {
			return fmt.Errorf("move lead %d: %w", id, err)
		}
		if err := renumber(tx, ids); err != nil {
			return err
		}
		if from != to {
			rest, err := columnIDs(tx, from, id)
			if err != nil {
				return err
			}
			if err := renumber(tx, rest); err != nil {
				return err
			}
		}
		if err := tx.First(&lead, id).Error; err != nil {
			return err
		}

		if from == to {
			return nil
		}
		return writeHistory(tx, id, actorID, models.ActionStatusChanged, from, to, map[string]any{"position": index})
	})
	return lead, from, err
}

// columnIDs lists the ids of a column in board order, leaving out skip.
func columnIDs(tx *gorm.DB, status models.LeadStatus, skip uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(&models.Lead{}).
		Where("status = ? AND id <> ?", status, skip).
		Order("position, id").
		Pluck("id", &ids).Error
	return ids, err
}

// renumber stores each lead's index in ids as its position.
func renumber(tx *gorm.DB, ids []uint) error {
	for pos, id := range ids {
		err := tx.Model(&models.Lead{}).
			Where("id = ? AND position <> ?", id, pos).
			UpdateColumn("position", pos).Error
		if err != nil {
			return fmt.Errorf("renumber lead %d: %w", id, err)
		}
	}
	return nil
}

// ArchiveLead hides the lead from the board and remembers where it was.
func ArchiveLead(db *gorm.DB, id uint, actorID *uint) (models.Lead, error) {
	return setArchived(db, id, actorID, true)
}

// RestoreLead brings an archived lead back under enquiry.
func RestoreLead(db *gorm.DB, id uint, actorID *uint) (models.Lead, error) {
	return setArchived(db, id, actorID, false)
}

func setArchived(db *gorm.DB, id uint, actorID *uint, archive bool) (models.Lead, error) {
	var lead models.Lead
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lead, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeadNotFound
			}
			return err
		}

		from := lead.Status
		var to models.LeadStatus
		var action string
		updates := map[string]interface{}{"updated_at": time.Now()}

		if archive {
			if from == models.StatusArchived {
				return nil
			}
			to, action = models.StatusArchived, models.ActionArchived
			updates["previous_status"] = from
		} else {
			if from != models.StatusArchived {
				return fmt.Errorf("%w: lead %d is not archived", ErrInvalidStatus, id)
			}
			to, action = models.StatusEnquiry, models.ActionRestored
			updates["previous_status"] = ""
		}

		pos, err := nextPosition(tx, to)
		if err != nil {
			return err
		}
		updates["status"] = to
		updates["position"] = pos

		if err := tx.Model(&lead).UpdateColumns(updates).Error; err != nil {
			return err
		}
		if err := tx.First(&lead, id).Error; err != nil {
			return err
		}
		return writeHistory(tx, id, actorID, action, from, to, nil)
	})
	return lead, err
}

// DeleteLead removes the lead and its history for good, keeping a
// LeadDeletion record with the mandatory reason.
func DeleteLead(db *gorm.DB, id uint, reason string, actorID *uint) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.First(&lead, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeadNotFound
			}
			return err
		}
		if err := tx.Where("lead_id = ?", id).Delete(&models.LeadHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Lead{}, id).Error; err != nil {
			return err
		}
		return tx.Create(&models.LeadDeletion{
			LeadID:      id,
			LeadName:    lead.Name,
			Reason:      reason,
			DeletedByID: actorID,
			DeletedAt:   time.Now(),
		}).Error
	})
}

// Board groups the filtered active leads by status. Columns come in pipeline
// order; when the filter names statuses only those columns are returned.
func Board(db *gorm.DB, f leadquery.Filter) ([]models.BoardColumn, error) {
	statuses := models.ActiveStatuses()
	if len(f.Statuses) > 0 {
		statuses = nil
		for _, s := range models.ActiveStatuses() {
			for _, want := range f.Statuses {
				if s == want {
					statuses = append(statuses, s)
				}
			}
		}
		f.Statuses = statuses
		if len(statuses) == 0 {
			return []models.BoardColumn{}, nil
		}
	}

	var leads []models.Lead
	err := db.Model(&models.Lead{}).
		Preload("Course").Preload("Assignee").
		Scopes(filterScope(f)).
		Order("leads.position ASC, leads.id ASC").
		Find(&leads).Error
	if err != nil {
		return nil, err
	}

	index := make(map[models.LeadStatus]int, len(statuses))
	columns := make([]models.BoardColumn, len(statuses))
	for i, s := range statuses {
		index[s] = i
		columns[i] = models.BoardColumn{Status: s, Leads: []models.Lead{}}
	}
	for _, l := range leads {
		if i, ok := index[l.Status]; ok {
			columns[i].Leads = append(columns[i].Leads, l)
		}
	}
	return columns, nil
}

// History returns the audit trail of a lead, newest first.
func History(db *gorm.DB, leadID uint) ([]models.LeadHistory, error) {
	var count int64
	if err := db.Model(&models.Lead{}).Where("id = ?", leadID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrLeadNotFound
	}
	history := []models.LeadHistory{}
	err := db.Preload("User").
		Where("lead_id = ?", leadID).
		Order("created_at DESC, id DESC").
		Find(&history).Error
	return history, err
}

// InsertLeads stores an already validated batch in one transaction: either
// every row lands or none does.
func InsertLeads(db *gorm.DB, leads []models.Lead, upload *models.BulkUpload, actorID *uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		next := map[models.LeadStatus]int{}
		for i := range leads {
			l := &leads[i]
			if _, ok := next[l.Status]; !ok {
				pos, err := nextPosition(tx, l.Status)
				if err != nil {
					return err
				}
				next[l.Status] = pos
			}
			l.ID = 0
			l.Position = next[l.Status]
			l.CreatedByID = actorID
			next[l.Status]++
		}

		if len(leads) > 0 {
			if err := tx.Omit(clause.Associations).CreateInBatches(&leads, 200).Error; err != nil {
				return fmt.Errorf("insert leads: %w", err)
			}
			history := make([]models.LeadHistory, len(leads))
			for i, l := range leads {
				history[i] = models.LeadHistory{
					LeadID:   l.ID,
					UserID:   actorID,
					Action:   models.ActionBulkImported,
					ToStatus: l.Status,
				}
			}
			if err := tx.CreateInBatches(&history, 200).Error; err != nil {
				return err
			}
		}

		upload.Inserted = len(leads)
		upload.UploadedByID = actorID
		return tx.Create(upload).Error
	})
}

func withReferences(db *gorm.DB) *gorm.DB {
	return db.Preload("Course").
		Preload("SubCourse").
		Preload("Batch").
		Preload("Trainer").
		Preload("Assignee").
		Preload("Unit").
		Preload("CardType").
		Preload("MetaCampaign")
}

func nextPosition(tx *gorm.DB, status models.LeadStatus) (int, error) {
	var max *int
	if err := tx.Model(&models.Lead{}).
		Where("status = ?", status).
		Select("MAX(position)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

func optionalRef(current *uint, update *uint) *uint {
	if update == nil {
		return current
	}
	if *update == 0 {
		return nil
	}
	v := *update
	return &v
}

func writeHistory(tx *gorm.DB, leadID uint, actorID *uint, action string, from, to models.LeadStatus, details map[string]any) error {
	entry := models.LeadHistory{
		LeadID:     leadID,
		UserID:     actorID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		entry.Details = datatypes.JSON(raw)
	}
	return tx.Create(&entry).Error
}
