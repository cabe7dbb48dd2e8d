package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	GoogleID     string    `gorm:"size:64;index" json:"-"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	Name         string    `json:"name"`
	Picture      string    `json:"picture"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	RoleID       uint      `json:"role_id"`
	Role         Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

// AuthSession backs one refresh token. Revoking it logs the device out.
type AuthSession struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    uint      `gorm:"index"`
	ExpiresAt time.Time `gorm:"index"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
