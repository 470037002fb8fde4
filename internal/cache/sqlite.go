package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"steam-achiever/internal/constants"
	"steam-achiever/internal/domain"
	"steam-achiever/internal/repository"
)

type SQLiteStore struct {
	db     *sql.DB
	repo   *repository.SnapshotRepository
	userID string
	logger zerolog.Logger
}

func NewSQLiteStore(db *sql.DB, userID string, logger zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		repo:   repository.NewSnapshotRepository(db, logger),
		userID: userID,
		logger: logger,
	}
}

func (s *SQLiteStore) Load(ctx context.Context, name string, dest any) error {
	if err := validateName(name); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snapshot, err := s.repo.Get(ctx, s.userID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}

	if err := decodePayload(snapshot.Version, snapshot.Payload, dest); err != nil {
		return err
	}

	s.logger.Debug().
		Str("snapshot", name).
		Str("id", snapshot.ID).
		Time("saved_at", snapshot.SavedAt).
		Msg("snapshot loaded")
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, name string, value any) error {
	if err := validateName(name); err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.repo.Upsert(ctx, &domain.Snapshot{
		UserID:  s.userID,
		Name:    name,
		Version: constants.SnapshotSchemaVersion,
		Payload: payload,
		SavedAt: time.Now().UTC(),
	})
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
