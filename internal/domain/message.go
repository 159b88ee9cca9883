package domain

import "time"

// Message is one chat message in the room. Messages are immutable once
// persisted and always reference an existing author.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	Content   string    `gorm:"type:varchar(200);not null"`
	UserID    uint      `gorm:"index;not null"`
	User      User      `gorm:"foreignKey:UserID"`
	Timestamp time.Time `gorm:"index;not null"` // assigned by the server at persistence time
}

// MaxMessageLength bounds Content; it matches the column width above.
const MaxMessageLength = 200
