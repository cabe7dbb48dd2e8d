package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionStatusChanged = "status_changed"
	ActionArchived      = "archived"
	ActionRestored      = "restored"
	ActionBulkImported  = "bulk_imported"
	ActionNote          = "note"
)

// LeadHistory is one audit row per lead mutation.
type LeadHistory struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	LeadID     uint           `gorm:"index" json:"lead_id"`
	UserID     *uint          `json:"user_id,omitempty"`
	Action     string         `gorm:"size:32" json:"action"`
	FromStatus LeadStatus     `gorm:"size:32" json:"from_status,omitempty"`
	ToStatus   LeadStatus     `gorm:"size:32" json:"to_status,omitempty"`
	Details    datatypes.JSON `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// LeadDeletion survives the hard delete of a lead.
type LeadDeletion struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	LeadID      uint      `gorm:"index" json:"lead_id"`
	LeadName    string    `json:"lead_name"`
	Reason      string    `gorm:"not null" json:"reason"`
	DeletedByID *uint     `json:"deleted_by_id,omitempty"`
	DeletedAt   time.Time `json:"deleted_at"`
}

// BulkUpload records the outcome of one CSV import.
type BulkUpload struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	FileName     string         `json:"file_name"`
	UploadedByID *uint          `json:"uploaded_by_id,omitempty"`
	Total        int            `json:"total"`
	Inserted     int            `json:"inserted"`
	Issues       datatypes.JSON `json:"issues,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
