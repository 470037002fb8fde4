package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"steam-achiever/internal/domain"
)

const DefaultBaseURL = "https://api.steampowered.com"

type CacheBackend string

const (
	CacheBackendFile   CacheBackend = "file"
	CacheBackendSQLite CacheBackend = "sqlite"
)

var (
	ErrMissingCredentials  = errors.New("you must supply a steam key and ID")
	ErrInvalidSteamID      = errors.New("steam ID must be numeric")
	ErrInvalidSortKey      = errors.New("invalid sort key")
	ErrInvalidCacheBackend = errors.New("invalid cache backend")
)

type Config struct {
	SteamID      string
	APIKey       string
	SortBy       domain.SortKey
	Refresh      bool
	CacheDir     string
	CacheBackend CacheBackend
	BaseURL      string
	LogLevel     string
	LogJSON      bool
}

// Flags carries raw command-line values. Empty strings fall through to the
// environment, then the .env file, then defaults.
type Flags struct {
	SteamID      string
	APIKey       string
	SortBy       string
	Refresh      bool
	CacheDir     string
	CacheBackend string
	BaseURL      string
	LogLevel     string
	LogJSON      bool
	EnvFile      string
}

func Load(flags Flags, logger zerolog.Logger) (*Config, error) {
	envFile := flags.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		logger.Debug().Str("path", envFile).Msg(".env file not found, using environment variables or defaults")
		dotenv = map[string]string{}
	}

	lookup := func(flag, key, fallback string) string {
		if flag != "" {
			return flag
		}
		if v := os.Getenv(key); v != "" {
			return v
		}
		if v := dotenv[key]; v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		SteamID:      strings.TrimSpace(lookup(flags.SteamID, "STEAM_ID", "")),
		APIKey:       strings.TrimSpace(lookup(flags.APIKey, "STEAM_API_KEY", "")),
		Refresh:      flags.Refresh,
		CacheDir:     lookup(flags.CacheDir, "STEAM_ACHIEVER_CACHE_DIR", defaultCacheDir()),
		CacheBackend: CacheBackend(lookup(flags.CacheBackend, "STEAM_ACHIEVER_CACHE_BACKEND", string(CacheBackendFile))),
		BaseURL:      strings.TrimRight(lookup(flags.BaseURL, "STEAM_API_BASE_URL", DefaultBaseURL), "/"),
		LogLevel:     lookup(flags.LogLevel, "LOG_LEVEL", "info"),
		LogJSON:      flags.LogJSON,
	}

	if cfg.SteamID == "" || cfg.APIKey == "" {
		return nil, ErrMissingCredentials
	}
	if !isNumeric(cfg.SteamID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSteamID, cfg.SteamID)
	}

	sortBy, err := domain.ParseSortKey(lookup(flags.SortBy, "STEAM_ACHIEVER_SORT_BY", string(domain.SortByPercent)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSortKey, err)
	}
	cfg.SortBy = sortBy

	switch cfg.CacheBackend {
	case CacheBackendFile, CacheBackendSQLite:
	default:
		return nil, fmt.Errorf("%w: %q, expected %q or %q", ErrInvalidCacheBackend, cfg.CacheBackend, CacheBackendFile, CacheBackendSQLite)
	}

	logger.Debug().
		Str("steam_id", cfg.SteamID).
		Str("sort_by", string(cfg.SortBy)).
		Bool("refresh", cfg.Refresh).
		Str("cache_dir", cfg.CacheDir).
		Str("cache_backend", string(cfg.CacheBackend)).
		Str("base_url", cfg.BaseURL).
		Msg("configuration loaded")

	return cfg, nil
}

// DBPath is the per-user SQLite file used by the sqlite cache backend.
func (c *Config) DBPath() string {
	return filepath.Join(c.CacheDir, fmt.Sprintf("steam-%s-cache.db", c.SteamID))
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "steam-achiever")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
