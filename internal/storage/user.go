package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/s/leadBoard/internal/models"
	"gorm.io/gorm"
)

// GoogleProfile is the subset of the Google userinfo response we keep.
type GoogleProfile struct {
	GoogleID string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
}

// SaveUser finds a user by Google ID, then by email; if found, it updates
// name and picture, otherwise it creates a regular user.
func SaveUser(db *gorm.DB, profile GoogleProfile) (models.User, error) {
	var existing models.User

	result := db.Where("google_id = ?", profile.GoogleID).First(&existing)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) && profile.Email != "" {
		// An account created by an admin with a password can later sign in
		// with Google; link it by email instead of creating a duplicate.
		result = db.Where("LOWER(email) = ?", strings.ToLower(profile.Email)).First(&existing)
	}

	switch {
	case result.Error == nil:
		if !existing.IsActive {
			return models.User{}, ErrUserInactive
		}
		updates := map[string]interface{}{
			"google_id": profile.GoogleID,
			"name":      profile.Name,
			"picture":   profile.Picture,
			// RoleID is managed by an admin and never touched here
		}
		if err := db.Model(&existing).Updates(updates).Error; err != nil {
			return models.User{}, fmt.Errorf("update google user: %w", err)
		}
		return existing, nil

	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		user := models.User{
			GoogleID: profile.GoogleID,
			Email:    strings.ToLower(profile.Email),
			Name:     profile.Name,
			Picture:  profile.Picture,
			IsActive: true,
			RoleID:   models.RoleUser,
		}
		if err := db.Create(&user).Error; err != nil {
			return models.User{}, fmt.Errorf("create google user: %w", err)
		}
		return user, nil

	default:
		return models.User{}, result.Error
	}
}

// FindUserByEmail looks the address up case-insensitively.
func FindUserByEmail(db *gorm.DB, email string) (models.User, error) {
	var user models.User
	err := db.Preload("Role").Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// FindUser loads a user by id.
func FindUser(db *gorm.DB, id uint) (models.User, error) {
	var user models.User
	err := db.Preload("Role").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// LogUserAction appends to the login audit; failures are not fatal to the caller.
func LogUserAction(db *gorm.DB, userID uint, action, details string) error {
	return db.Create(&models.UserLog{UserID: userID, Action: action, Details: details}).Error
}

// UserActivity returns one page of a user's sign-in audit, newest first.
func UserActivity(db *gorm.DB, userID uint, p Page) ([]models.UserLog, int64, error) {
	if _, err := FindUser(db, userID); err != nil {
		return nil, 0, err
	}
	var total int64
	if err := db.Model(&models.UserLog{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	logs := []models.UserLog{}
	err := db.Where("user_id = ?", userID).
		Scopes(p.Scope).
		Order("created_at DESC, id DESC").
		Find(&logs).Error
	return logs, total, err
}
