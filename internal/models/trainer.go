package models

import (
	"time"

	"github.com/lib/pq"
)

type Trainer struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name   string         `gorm:"size:255;not null" json:"name"`
	Email  string         `gorm:"size:255" json:"email"`
	Phone  string         `gorm:"size:32" json:"phone"`
	Skills pq.StringArray `gorm:"type:text[]" json:"skills"`
}

// Batch is a cohort of one course, optionally led by a trainer.
type Batch struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	CourseID  uint       `gorm:"index" json:"course_id"`
	TrainerID *uint      `json:"trainer_id,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`

	Course  Course   `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Trainer *Trainer `gorm:"foreignKey:TrainerID" json:"trainer,omitempty"`
}
