package setup

import (
	"fmt"

	"gorm.io/gorm"

	"chatroom/internal/domain"
)

// MigrateDB creates or updates the users and messages tables, including the
// unique indexes on users.email and users.nickname and the message→user
// foreign key.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Message{}); err != nil {
		return fmt.Errorf("auto-migrate tables: %w", err)
	}
	return nil
}
