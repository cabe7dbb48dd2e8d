package models

import (
	"time"
)

// Lead is a prospective or enrolled student tracked through the pipeline.
type Lead struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name         string `gorm:"size:255;not null" json:"name"`
	MobileNumber string `gorm:"size:32;not null;index" json:"mobile_number"`
	Email        string `gorm:"size:255" json:"email"`
	Role         string `gorm:"size:128" json:"role"`
	Company      string `gorm:"size:255" json:"company"`
	Location     string `gorm:"size:255" json:"location"`
	Source       string `gorm:"size:128" json:"source"`
	Comments     string `json:"comments"`

	Status         LeadStatus `gorm:"size:32;not null;index" json:"status"`
	PreviousStatus LeadStatus `gorm:"size:32" json:"previous_status,omitempty"`
	Position       int        `gorm:"not null;default:0" json:"position"`

	FeeStatus FeeStatus `gorm:"size:16;default:'pending'" json:"fee_status"`
	TotalFee  float64   `json:"total_fee"`
	PaidFee   float64   `json:"paid_fee"`

	CourseID       uint  `gorm:"not null;index" json:"course_id"`
	SubCourseID    *uint `json:"sub_course_id,omitempty"`
	BatchID        *uint `json:"batch_id,omitempty"`
	TrainerID      *uint `json:"trainer_id,omitempty"`
	AssigneeID     *uint `gorm:"index" json:"assignee_id,omitempty"`
	UnitID         uint  `gorm:"not null" json:"unit_id"`
	CardTypeID     uint  `gorm:"not null" json:"card_type_id"`
	MetaCampaignID *uint `json:"meta_campaign_id,omitempty"`
	CreatedByID    *uint `json:"created_by_id,omitempty"`

	Course       Course        `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	SubCourse    *SubCourse    `gorm:"foreignKey:SubCourseID" json:"sub_course,omitempty"`
	Batch        *Batch        `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	Trainer      *Trainer      `gorm:"foreignKey:TrainerID" json:"trainer,omitempty"`
	Assignee     *User         `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Unit         BusinessUnit  `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	CardType     CardType      `gorm:"foreignKey:CardTypeID" json:"card_type,omitempty"`
	MetaCampaign *MetaCampaign `gorm:"foreignKey:MetaCampaignID" json:"meta_campaign,omitempty"`
}
