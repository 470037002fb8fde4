package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	ShutdownTimeout    = 5 * time.Second
)

const (
	HTTPMaxConnsPerHost     = 4
	HTTPReadTimeout         = 10 * time.Second
	HTTPWriteTimeout        = 10 * time.Second
	HTTPMaxIdleConnDuration = 1 * time.Minute
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	// SnapshotSchemaVersion is bumped whenever the persisted shape of a
	// snapshot payload changes. Older snapshots are refetched.
	SnapshotSchemaVersion = 1

	CacheDirMode  = 0750
	CacheFileMode = 0600
)
