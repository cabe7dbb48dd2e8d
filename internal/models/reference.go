package models

import "time"

type BusinessUnit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"size:255;uniqueIndex" json:"name"`
}

type CardType struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"size:255;uniqueIndex" json:"name"`
}

// MetaCampaign is an ad campaign leads are attributed to.
type MetaCampaign struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	CampaignID string    `gorm:"size:128;index" json:"campaign_id"`
	Source     string    `gorm:"size:64" json:"source"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
}
