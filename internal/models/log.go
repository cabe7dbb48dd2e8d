package models

import (
	"time"
)

// UserLog is the sign-in audit trail: login, login_google, refresh, logout.
type UserLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Action    string    `gorm:"size:32" json:"action"`
	Details   string    `json:"details"` // remote address
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
