package admin

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/s/leadBoard/internal/models"
	"github.com/s/leadBoard/internal/storage"
)

var trainers = resource[models.Trainer]{
	name:       "trainer",
	embeddedIn: []string{"batch"},
	order:      "name ASC",
	search:     []string{"name", "email", "phone"},
	validate: func(_ *gorm.DB, t *models.Trainer) error {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return missing("name")
		}
		skills := t.Skills[:0]
		for _, sk := range t.Skills {
			if sk = strings.TrimSpace(sk); sk != "" {
				skills = append(skills, sk)
			}
		}
		t.Skills = skills
		return nil
	},
	inUse: []storage.RefCheck{
		{Model: &models.Lead{}, Column: "trainer_id"},
		{Model: &models.Batch{}, Column: "trainer_id"},
	},
}

var batches = resource[models.Batch]{
	name:    "batch",
	order:   "start_date DESC NULLS LAST, name ASC",
	preload: []string{"Course", "Trainer"},
	search:  []string{"name"},
	validate: func(db *gorm.DB, b *models.Batch) error {
		b.Name = strings.TrimSpace(b.Name)
		if b.Name == "" {
			return missing("name")
		}
		if err := exists(db, &models.Course{}, "course_id", b.CourseID); err != nil {
			return err
		}
		if b.TrainerID != nil {
			return exists(db, &models.Trainer{}, "trainer_id", *b.TrainerID)
		}
		return nil
	},
	inUse: []storage.RefCheck{
		{Model: &models.Lead{}, Column: "batch_id"},
	},
}

var units = resource[models.BusinessUnit]{
	name:  "unit",
	order: "name ASC",
	validate: func(_ *gorm.DB, u *models.BusinessUnit) error {
		if u.Name = strings.TrimSpace(u.Name); u.Name == "" {
			return missing("name")
		}
		return nil
	},
	inUse: []storage.RefCheck{
		{Model: &models.Lead{}, Column: "unit_id"},
	},
}

var cardTypes = resource[models.CardType]{
	name:  "card type",
	order: "name ASC",
	validate: func(_ *gorm.DB, c *models.CardType) error {
		if c.Name = strings.TrimSpace(c.Name); c.Name == "" {
			return missing("name")
		}
		return nil
	},
	inUse: []storage.RefCheck{
		{Model: &models.Lead{}, Column: "card_type_id"},
	},
}

var metaCampaigns = resource[models.MetaCampaign]{
	name:   "meta campaign",
	order:  "created_at DESC",
	search: []string{"name", "campaign_id", "source"},
	validate: func(_ *gorm.DB, m *models.MetaCampaign) error {
		if m.Name = strings.TrimSpace(m.Name); m.Name == "" {
			return missing("name")
		}
		return nil
	},
	inUse: []storage.RefCheck{
		{Model: &models.Lead{}, Column: "meta_campaign_id"},
	},
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", storage.ErrMissingFields, field)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", storage.ErrInvalidInput, msg)
}

func exists(db *gorm.DB, model interface{}, field string, id uint) error {
	if id == 0 {
		return missing(field)
	}
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s %d", storage.ErrUnknownReference, field, id)
	}
	return nil
}
