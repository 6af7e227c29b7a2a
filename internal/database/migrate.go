package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.PatientProfile{},
		&models.SpecialistProfile{},
		&models.OrganizationProfile{},
		&models.AdminProfile{},
		&models.BlockedUser{},
		&models.Clinic{},
		&models.Order{},
		&models.Response{},
		&models.Review{},
		&models.Chat{},
		&models.Message{},
	}
}

// Migrate creates or updates the schema, including the unique indexes guarding
// duplicate responses, reviews and chats.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
