package service

import "errors"

var (
	// ErrEmailTaken and ErrNicknameTaken identify which field collided so the
	// registration form can attach the error to it.
	ErrEmailTaken    = errors.New("email already exists")
	ErrNicknameTaken = errors.New("nickname already exists")

	// ErrAuthenticationFailed is returned for any login failure. It is
	// deliberately uniform: "no such user" and "wrong password" must be
	// indistinguishable to the caller.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidInput covers malformed registration fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidContent rejects empty or over-length message content.
	ErrInvalidContent = errors.New("message content must be 1-200 characters")

	// ErrUnknownAuthor means the message references a user that does not exist.
	ErrUnknownAuthor = errors.New("message author does not exist")

	// ErrSnapshotFailed means the message was persisted but the snapshot
	// export did not complete; the client may retry.
	ErrSnapshotFailed = errors.New("snapshot export failed")

	ErrInternalServer = errors.New("internal server error")
)
