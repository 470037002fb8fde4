package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"steam-achiever/internal/constants"
)

type fileEnvelope struct {
	Version int             `json:"version"`
	UserID  string          `json:"user_id"`
	Name    string          `json:"name"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// FileStore keeps each snapshot in its own JSON file named after the user and
// the snapshot, e.g. steam-<id>-games-cache.json.
type FileStore struct {
	directory string
	userID    string
	logger    zerolog.Logger

	mu sync.RWMutex
}

func NewFileStore(directory, userID string, logger zerolog.Logger) (*FileStore, error) {
	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if userID == "" {
		return nil, errors.New("cache user id cannot be empty")
	}

	if err := os.MkdirAll(directory, constants.CacheDirMode); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStore{
		directory: directory,
		userID:    userID,
		logger:    logger,
	}, nil
}

func (s *FileStore) Load(_ context.Context, name string, dest any) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheCorrupt, path, err)
	}
	if env.UserID != s.userID || env.Name != name {
		return fmt.Errorf("%w: %s belongs to %s/%s", ErrCacheCorrupt, path, env.UserID, env.Name)
	}

	if err := decodePayload(env.Version, env.Data, dest); err != nil {
		return err
	}

	s.logger.Debug().
		Str("snapshot", name).
		Str("path", path).
		Time("saved_at", env.SavedAt).
		Msg("snapshot loaded")
	return nil
}

// Save replaces the snapshot file. The payload goes to a temp file first and is
// renamed over the target.
func (s *FileStore) Save(_ context.Context, name string, value any) error {
	if err := validateName(name); err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", name, err)
	}

	entry, err := json.Marshal(fileEnvelope{
		Version: constants.SnapshotSchemaVersion,
		UserID:  s.userID,
		Name:    name,
		SavedAt: time.Now().UTC(),
		Data:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(name)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, entry, constants.CacheFileMode); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	s.logger.Debug().
		Str("snapshot", name).
		Str("path", path).
		Int("bytes", len(entry)).
		Msg("snapshot saved")
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// Path returns the file backing the named snapshot.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.directory, fmt.Sprintf("steam-%s-%s-cache.json", s.userID, name))
}
