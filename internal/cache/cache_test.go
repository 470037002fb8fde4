package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steam-achiever/internal/cache"
	"steam-achiever/internal/config"
	"steam-achiever/internal/database"
	"steam-achiever/internal/domain"
	"steam-achiever/internal/repository"
)

type backend struct {
	name string
	open func(t *testing.T, dir, userID string) cache.Store
}

var backends = []backend{
	{
		name: "file",
		open: func(t *testing.T, dir, userID string) cache.Store {
			s, err := cache.NewFileStore(dir, userID, zerolog.Nop())
			require.NoError(t, err)
			return s
		},
	},
	{
		name: "sqlite",
		open: func(t *testing.T, dir, userID string) cache.Store {
			s, err := cache.New(&config.Config{
				SteamID:      userID,
				CacheDir:     dir,
				CacheBackend: config.CacheBackendSQLite,
			}, zerolog.Nop())
			require.NoError(t, err)
			return s
		},
	},
}

func sampleGames() []domain.Game {
	return []domain.Game{
		{AppID: 440, Name: "Team Fortress 2", PlaytimeForever: 90},
		{AppID: 620, Name: "Portal 2"},
	}
}

func sampleAchievements() domain.AchievementsMap {
	return domain.AchievementsMap{
		620: {
			{APIName: "ACH.A", Achieved: true, UnlockTime: 1300000000, Name: "Wake Up Call", Description: "Survive"},
			{APIName: "ACH.B", Name: "You Monster"},
		},
		440: {},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t, t.TempDir(), "76561197960287930")
			defer store.Close()

			require.NoError(t, store.Save(ctx, cache.SnapshotGames, sampleGames()))
			require.NoError(t, store.Save(ctx, cache.SnapshotAchievements, sampleAchievements()))

			var games []domain.Game
			require.NoError(t, store.Load(ctx, cache.SnapshotGames, &games))
			assert.Equal(t, sampleGames(), games)

			var achievements domain.AchievementsMap
			require.NoError(t, store.Load(ctx, cache.SnapshotAchievements, &achievements))
			assert.Equal(t, sampleAchievements(), achievements)
		})
	}
}

func TestStore_Miss(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, t.TempDir(), "1")
			defer store.Close()

			var games []domain.Game
			err := store.Load(context.Background(), cache.SnapshotGames, &games)
			assert.ErrorIs(t, err, cache.ErrCacheMiss)
			assert.Nil(t, games)
		})
	}
}

func TestStore_OverwriteReplaces(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t, t.TempDir(), "1")
			defer store.Close()

			require.NoError(t, store.Save(ctx, cache.SnapshotGames, sampleGames()))
			require.NoError(t, store.Save(ctx, cache.SnapshotGames, []domain.Game{{AppID: 1, Name: "Only"}}))

			var games []domain.Game
			require.NoError(t, store.Load(ctx, cache.SnapshotGames, &games))
			assert.Equal(t, []domain.Game{{AppID: 1, Name: "Only"}}, games)
		})
	}
}

func TestStore_UsersDoNotCollide(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			alice := b.open(t, dir, "1")
			defer alice.Close()
			require.NoError(t, alice.Save(ctx, cache.SnapshotGames, sampleGames()))

			bob := b.open(t, dir, "2")
			defer bob.Close()

			var games []domain.Game
			assert.ErrorIs(t, bob.Load(ctx, cache.SnapshotGames, &games), cache.ErrCacheMiss)
		})
	}
}

func TestStore_InvalidName(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t, t.TempDir(), "1")
			defer store.Close()

			for _, name := range []string{"", "../games", "Games", "a/b"} {
				assert.ErrorIs(t, store.Save(ctx, name, 1), cache.ErrInvalidSnapshotName, name)
				var v int
				assert.ErrorIs(t, store.Load(ctx, name, &v), cache.ErrInvalidSnapshotName, name)
			}
		})
	}
}

func TestFileStore_Path(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewFileStore(dir, "42", zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), cache.SnapshotGames, sampleGames()))

	assert.Equal(t, filepath.Join(dir, "steam-42-games-cache.json"), store.Path(cache.SnapshotGames))
	assert.FileExists(t, store.Path(cache.SnapshotGames))
	assert.NoFileExists(t, store.Path(cache.SnapshotGames)+".tmp")
}

func TestFileStore_CorruptAndStale(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"truncated", `{"version":1,"user_id":"42"`, cache.ErrCacheCorrupt},
		{"not json", "\x80\x03]q\x00", cache.ErrCacheCorrupt},
		{"wrong payload type", `{"version":1,"user_id":"42","name":"games","data":{"a":1}}`, cache.ErrCacheCorrupt},
		{"other user", `{"version":1,"user_id":"7","name":"games","data":[]}`, cache.ErrCacheCorrupt},
		{"old schema", `{"version":0,"user_id":"42","name":"games","data":[]}`, cache.ErrSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := cache.NewFileStore(t.TempDir(), "42", zerolog.Nop())
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(store.Path(cache.SnapshotGames), []byte(tt.content), 0600))

			var games []domain.Game
			err = store.Load(context.Background(), cache.SnapshotGames, &games)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSQLiteStore_StaleSchema(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "cache.db"), zerolog.Nop())
	require.NoError(t, err)

	repo := repository.NewSnapshotRepository(db, zerolog.Nop())
	require.NoError(t, repo.Upsert(ctx, &domain.Snapshot{
		UserID: "42", Name: cache.SnapshotGames, Version: 0, Payload: []byte(`[]`), SavedAt: time.Now(),
	}))

	store := cache.NewSQLiteStore(db, "42", zerolog.Nop())
	defer store.Close()

	var games []domain.Game
	assert.ErrorIs(t, store.Load(ctx, cache.SnapshotGames, &games), cache.ErrSchemaMismatch)
}

func TestNew_FileBackendCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := cache.New(&config.Config{SteamID: "1", CacheDir: dir, CacheBackend: config.CacheBackendFile}, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &cache.FileStore{}, store)
	assert.DirExists(t, dir)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := cache.New(&config.Config{SteamID: "1", CacheDir: t.TempDir(), CacheBackend: "redis"}, zerolog.Nop())
	assert.ErrorIs(t, err, config.ErrInvalidCacheBackend)
}
