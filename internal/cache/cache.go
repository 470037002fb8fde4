// Package cache persists per-user snapshots of Steam data between runs.
//
// A snapshot is a named JSON payload wrapped in a versioned envelope. Two
// backends exist: FileStore keeps one file per user and snapshot, SQLiteStore
// keeps one database per user. Both replace a snapshot wholesale on Save.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"steam-achiever/internal/config"
	"steam-achiever/internal/constants"
	"steam-achiever/internal/database"
)

const (
	SnapshotGames        = "games"
	SnapshotAchievements = "achievements"
)

var (
	ErrCacheMiss           = errors.New("cache entry not found")
	ErrCacheCorrupt        = errors.New("cache entry is corrupt")
	ErrSchemaMismatch      = errors.New("cache entry has an unsupported schema version")
	ErrInvalidSnapshotName = errors.New("invalid snapshot name")
)

var snapshotNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Store loads and saves named snapshots for a single user.
type Store interface {
	// Load decodes the snapshot into dest. It returns ErrCacheMiss when the
	// snapshot does not exist.
	Load(ctx context.Context, name string, dest any) error
	Save(ctx context.Context, name string, value any) error
	Close() error
}

func New(cfg *config.Config, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "cache").Str("backend", string(cfg.CacheBackend)).Logger()

	switch cfg.CacheBackend {
	case config.CacheBackendSQLite:
		db, err := database.New(cfg, logger)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db, cfg.SteamID, logger), nil
	case config.CacheBackendFile, "":
		return NewFileStore(cfg.CacheDir, cfg.SteamID, logger)
	}
	return nil, fmt.Errorf("%w: %q", config.ErrInvalidCacheBackend, cfg.CacheBackend)
}

func validateName(name string) error {
	if !snapshotNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSnapshotName, name)
	}
	return nil
}

func decodePayload(version int, payload []byte, dest any) error {
	if version != constants.SnapshotSchemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, version, constants.SnapshotSchemaVersion)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}
	return nil
}
