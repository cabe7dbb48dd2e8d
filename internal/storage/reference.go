package storage

import (
	"fmt"

	"github.com/s/leadBoard/internal/models"
	"gorm.io/gorm"
)

// RefCheck names a table column that may point at a record.
type RefCheck struct {
	Model  interface{}
	Column string
}

// EnsureUnused returns ErrInUse when any of the checks finds a row pointing at id.
func EnsureUnused(db *gorm.DB, id uint, checks ...RefCheck) error {
	for _, c := range checks {
		var count int64
		if err := db.Model(c.Model).Where(c.Column+" = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w (%s)", ErrInUse, c.Column)
		}
	}
	return nil
}

// DefaultReferenceIDs looks up the unit and card type used when an import row
// leaves them blank.
func DefaultReferenceIDs(db *gorm.DB, unitName, cardTypeName string) (unitID, cardTypeID uint, err error) {
	var unit models.BusinessUnit
	if err = db.Where("name = ?", unitName).First(&unit).Error; err != nil {
		return 0, 0, fmt.Errorf("default unit %q: %w", unitName, err)
	}
	var ct models.CardType
	if err = db.Where("name = ?", cardTypeName).First(&ct).Error; err != nil {
		return 0, 0, fmt.Errorf("default card type %q: %w", cardTypeName, err)
	}
	return unit.ID, ct.ID, nil
}

// AllIDs returns every id of model as a set.
func AllIDs(db *gorm.DB, model interface{}) (map[uint]bool, error) {
	var ids []uint
	if err := db.Model(model).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// RecordUpload stores the outcome of an import that inserted nothing.
func RecordUpload(db *gorm.DB, upload *models.BulkUpload) error {
	return db.Create(upload).Error
}
