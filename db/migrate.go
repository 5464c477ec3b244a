package db

import (
	"fmt"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/db/models"
	"gorm.io/gorm"
)

func AutoMigrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	return gdb.AutoMigrate(
		&models.UserProfile{},
		&models.SymptomRecord{},
		&models.FollowUpReminder{},
		&models.UserLocation{},
		&models.UserCountry{},
		&models.DiagnosisFeedback{},
	)
}
