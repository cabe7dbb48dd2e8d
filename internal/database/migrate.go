package database

import (
	"github.com/s/leadBoard/internal/models"
	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.AuthSession{},
		&models.UserLog{},
		&models.Course{},
		&models.SubCourse{},
		&models.Trainer{},
		&models.Batch{},
		&models.BusinessUnit{},
		&models.CardType{},
		&models.MetaCampaign{},
		&models.Lead{},
		&models.LeadHistory{},
		&models.LeadDeletion{},
		&models.BulkUpload{},
	)
}
