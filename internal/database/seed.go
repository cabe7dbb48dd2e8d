package database

import (
	"fmt"
	"log/slog"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/models"
	"gorm.io/gorm"
)

const (
	DefaultUnitName     = "General"
	DefaultCardTypeName = "Standard"
)

// Seed creates roles, the default unit and card type, and the first admin
// when adminPassword is set. It is safe to run on every start.
func Seed(db *gorm.DB, adminEmail, adminPassword string) error {
	for id, name := range map[uint]string{
		models.RoleUser:    "User",
		models.RoleAdmin:   "Admin",
		models.RoleManager: "Manager",
	} {
		if err := db.FirstOrCreate(&models.Role{}, models.Role{ID: id, Name: name}).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}

	if err := db.FirstOrCreate(&models.BusinessUnit{}, models.BusinessUnit{Name: DefaultUnitName}).Error; err != nil {
		return fmt.Errorf("seed unit: %w", err)
	}
	if err := db.FirstOrCreate(&models.CardType{}, models.CardType{Name: DefaultCardTypeName}).Error; err != nil {
		return fmt.Errorf("seed card type: %w", err)
	}

	if adminPassword == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", adminEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	admin := models.User{
		Email:        adminEmail,
		Name:         "Administrator",
		PasswordHash: hash,
		IsActive:     true,
		RoleID:       models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("seeded admin user", "email", adminEmail)
	return nil
}
