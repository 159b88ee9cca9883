package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"chatroom/internal/domain"
	"chatroom/internal/repository"
)

// SnapshotService serializes the entire store (every user with its nested
// messages) to a flat JSON file after each mutation. The previous snapshot is
// fully replaced. This is an O(users × messages) rewrite on every post and is
// only acceptable at the scale this service targets; the file is a derived,
// disposable projection, never a source of truth.
type SnapshotService struct {
	userRepo repository.UserRepository
	path     string

	// Serializes exports so two writers never interleave temp files; the
	// rename itself is atomic either way.
	mu sync.Mutex
}

// NewSnapshotService creates a SnapshotService writing to path.
func NewSnapshotService(userRepo repository.UserRepository, path string) (*SnapshotService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for SnapshotService")
	}
	if path == "" {
		return nil, fmt.Errorf("snapshot path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &SnapshotService{userRepo: userRepo, path: path}, nil
}

// Export rebuilds the snapshot from the store and atomically replaces the
// file (write to temp, then rename) so a concurrent reader can never observe
// a half-written snapshot. I/O failures are returned, never swallowed.
func (s *SnapshotService) Export(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.userRepo.FindAllWithMessages(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: load users: %w", err)
	}

	projection := make([]domain.UserSnapshot, 0, len(users))
	for _, u := range users {
		projection = append(projection, domain.SnapshotUser(u))
	}

	data, err := json.MarshalIndent(projection, "", "    ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	if err := s.writeAtomic(data); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"path":  s.path,
		"users": len(projection),
	}).Debug("Snapshot exported")
	return nil
}

func (s *SnapshotService) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: replace %s: %w", s.path, err)
	}
	return nil
}

// Path reports the snapshot file location.
func (s *SnapshotService) Path() string {
	return s.path
}
