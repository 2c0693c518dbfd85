package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
// Driver errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the lifecycle tables and their unique indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.CourseSpace{},
		&models.Enrollment{},
		&models.Work{},
		&models.Group{},
		&models.GroupMember{},
		&models.Assignment{},
		&models.Submission{},
		&models.Evaluation{},
		&models.EvaluationCorrection{},
		&models.ActivityLog{},
		&models.Attachment{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
