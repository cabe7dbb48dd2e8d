package storage

import (
	"errors"
	"time"

	"github.com/s/leadBoard/internal/models"
	"gorm.io/gorm"
)

// CreateSession stores the refresh token identified by jti.
func CreateSession(db *gorm.DB, jti string, userID uint, expiresAt time.Time) error {
	return db.Create(&models.AuthSession{
		ID:        jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}).Error
}

// ValidSession returns the session if it exists, is not revoked and has not expired.
func ValidSession(db *gorm.DB, jti string, now time.Time) (models.AuthSession, error) {
	var s models.AuthSession
	err := db.Where("id = ? AND revoked_at IS NULL AND expires_at > ?", jti, now).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.AuthSession{}, ErrSessionNotFound
	}
	return s, err
}

// RevokeSession marks the session as used. Revoking twice is not an error.
func RevokeSession(db *gorm.DB, jti string, now time.Time) error {
	return db.Model(&models.AuthSession{}).
		Where("id = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", now).Error
}

// PurgeSessions drops sessions that expired before cutoff.
func PurgeSessions(db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.Where("expires_at < ?", cutoff).Delete(&models.AuthSession{})
	return res.RowsAffected, res.Error
}
