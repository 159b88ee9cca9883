// Package domain holds the persistent data model of the chat service.
package domain

import "time"

// User is a registered account. Email and Nickname are unique across all
// users; the unique indexes at the storage layer are the source of truth for
// that invariant, not any prior existence check.
type User struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(50);not null"`
	Surname   string    `gorm:"type:varchar(50);not null"`
	Email     string    `gorm:"type:varchar(120);uniqueIndex:idx_users_email;not null"`
	Nickname  string    `gorm:"type:varchar(20);uniqueIndex:idx_users_nickname;not null"`
	Password  string    `gorm:"type:text;not null"` // bcrypt hash, never plaintext
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Messages []Message `gorm:"foreignKey:UserID"`
}
