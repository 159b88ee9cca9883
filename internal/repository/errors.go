package repository

import "errors"

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrEmailTaken means an insert violated the unique index on users.email.
	ErrEmailTaken = errors.New("repository: email already registered")
	// ErrNicknameTaken means an insert violated the unique index on users.nickname.
	ErrNicknameTaken = errors.New("repository: nickname already registered")
	// ErrForeignKey means an insert referenced a row that does not exist,
	// e.g. a message whose author was never registered.
	ErrForeignKey = errors.New("repository: referenced record does not exist")
)

// ErrUserNotFound is what user lookups document and return. It aliases
// ErrNotFound (users are the only records looked up by key today) so
// errors.Is matches under either name.
var ErrUserNotFound = ErrNotFound
