// Package service implements the business logic of the chat room: accounts,
// message posting, and the snapshot export.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"chatroom/internal/domain"
	"chatroom/internal/repository"
)

// Exporter rewrites the snapshot file from the current store contents.
// Implemented by SnapshotService.
type Exporter interface {
	Export(ctx context.Context) error
}

// AuthService handles registration, login and session token issuance.
type AuthService struct {
	userRepo      repository.UserRepository
	exporter      Exporter
	sessionSecret []byte
	sessionExpiry time.Duration
}

// NewAuthService creates an AuthService. sessionSecret signs session tokens
// and must come from configuration.
func NewAuthService(userRepo repository.UserRepository, exporter Exporter, sessionSecret string, sessionExpiryHours int) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if exporter == nil {
		panic("Exporter cannot be nil for AuthService")
	}
	if sessionSecret == "" {
		return nil, fmt.Errorf("session secret cannot be empty")
	}
	if sessionExpiryHours <= 0 {
		sessionExpiryHours = 24
	}
	return &AuthService{
		userRepo:      userRepo,
		exporter:      exporter,
		sessionSecret: []byte(sessionSecret),
		sessionExpiry: time.Duration(sessionExpiryHours) * time.Hour,
	}, nil
}

// Register creates a new account. The password is bcrypt-hashed before it
// reaches the store; plaintext is never persisted or logged. Uniqueness of
// email and nickname is enforced by the storage layer's unique indexes, not
// by a prior existence check, so two racing registrations cannot both win.
func (s *AuthService) Register(ctx context.Context, name, surname, email, nickname, password string) (*domain.User, error) {
	logCtx := logrus.WithFields(logrus.Fields{"email": email, "nickname": nickname})

	if err := validateRegistration(name, surname, email, nickname, password); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, ErrInternalServer
	}

	user := &domain.User{
		Name:     name,
		Surname:  surname,
		Email:    email,
		Nickname: nickname,
		Password: hashed,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			logCtx.Warn("Registration failed: email already registered")
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrNicknameTaken):
			logCtx.Warn("Registration failed: nickname already registered")
			return nil, ErrNicknameTaken
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, ErrInternalServer
	}

	// Registration mutates the store, so the snapshot is re-exported. A
	// failed export does not undo the committed row; the periodic exporter
	// catches up.
	if err := s.exporter.Export(ctx); err != nil {
		logCtx.WithError(err).Error("Snapshot export failed after registration")
	}

	logCtx.WithField("user_id", user.ID).Info("User registered")
	user.Password = ""
	return user, nil
}

// Authenticate matches the identifier against email OR nickname and verifies
// the password. Every failure mode returns ErrAuthenticationFailed so the
// response never reveals which identifiers are registered.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*domain.User, error) {
	logCtx := logrus.WithField("login_identifier", identifier)

	user, err := s.userRepo.FindByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: user not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: error finding user")
		}
		return nil, ErrAuthenticationFailed
	}
	if user == nil {
		return nil, ErrAuthenticationFailed
	}

	if !checkPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: invalid password")
		return nil, ErrAuthenticationFailed
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in")
	return user, nil
}

// IssueSession creates the signed session token bound to the user.
func (s *AuthService) IssueSession(userID uint) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(s.sessionExpiry).Unix(),
		"iat":     time.Now().Unix(),
	})
	signed, err := token.SignedString(s.sessionSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// SessionExpiry reports the configured token lifetime, used for the cookie
// max-age.
func (s *AuthService) SessionExpiry() time.Duration {
	return s.sessionExpiry
}

func validateRegistration(name, surname, email, nickname, password string) error {
	if name == "" || surname == "" || email == "" || nickname == "" || password == "" {
		return ErrInvalidInput
	}
	if utf8.RuneCountInString(name) > 50 || utf8.RuneCountInString(surname) > 50 {
		return ErrInvalidInput
	}
	if len(email) > 120 {
		return ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidInput
	}
	if n := utf8.RuneCountInString(nickname); n < 2 || n > 20 {
		return ErrInvalidInput
	}
	if len(password) < 6 {
		return ErrInvalidInput
	}
	return nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
