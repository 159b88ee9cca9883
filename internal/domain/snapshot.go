package domain

import "time"

// UserSnapshot is the projection of a User written to the snapshot file.
// It deliberately omits the password hash: the snapshot is a disposable,
// externally readable copy of the store, not a backup of credentials.
type UserSnapshot struct {
	ID       uint              `json:"id"`
	Name     string            `json:"name"`
	Surname  string            `json:"surname"`
	Email    string            `json:"email"`
	Nickname string            `json:"nickname"`
	Messages []MessageSnapshot `json:"messages"`
}

// MessageSnapshot is the nested message projection. Timestamp marshals as
// RFC 3339 (ISO-8601).
type MessageSnapshot struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotUser converts a User with preloaded Messages into its projection.
func SnapshotUser(u User) UserSnapshot {
	s := UserSnapshot{
		ID:       u.ID,
		Name:     u.Name,
		Surname:  u.Surname,
		Email:    u.Email,
		Nickname: u.Nickname,
		Messages: make([]MessageSnapshot, 0, len(u.Messages)),
	}
	for _, m := range u.Messages {
		s.Messages = append(s.Messages, MessageSnapshot{
			ID:        m.ID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return s
}
