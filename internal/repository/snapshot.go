package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"steam-achiever/internal/domain"
)

type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSnapshotRepository(sqlDB *sql.DB, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Get returns sql.ErrNoRows when the user has no snapshot with that name.
func (r *SnapshotRepository) Get(ctx context.Context, userID, name string) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, version, payload, saved_at FROM snapshots WHERE user_id = ? AND name = ?`,
		userID, name,
	)

	var (
		s       domain.Snapshot
		savedAt int64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Version, &s.Payload, &savedAt); err != nil {
		return nil, err
	}
	s.SavedAt = time.Unix(savedAt, 0).UTC()

	return &s, nil
}

// Upsert replaces the user's snapshot. Each write gets a fresh row id.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshot *domain.Snapshot) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, user_id, name, version, payload, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, name) DO UPDATE SET
			id = excluded.id,
			version = excluded.version,
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
		id, snapshot.UserID, snapshot.Name, snapshot.Version, snapshot.Payload, snapshot.SavedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", snapshot.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot %s: %w", snapshot.Name, err)
	}

	snapshot.ID = id
	r.logger.Debug().
		Str("id", id).
		Str("user_id", snapshot.UserID).
		Str("name", snapshot.Name).
		Int("bytes", len(snapshot.Payload)).
		Msg("snapshot stored")

	return nil
}
