package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"steam-achiever/internal/api"
	"steam-achiever/internal/cache"
	"steam-achiever/internal/config"
	"steam-achiever/internal/constants"
	"steam-achiever/internal/domain"
)

var errUnknownSortKey = errors.New("unknown sort key")

// StatsClient is the part of the Steam Web API the service reads from.
type StatsClient interface {
	GetOwnedGames(ctx context.Context, steamID string) (*api.OwnedGamesResponse, error)
	GetPlayerAchievements(ctx context.Context, appID int64, steamID string) (*api.PlayerAchievementsResponse, error)
}

type ProgressService struct {
	cfg    *config.Config
	steam  StatsClient
	store  cache.Store
	logger zerolog.Logger

	games        []domain.Game
	achievements domain.AchievementsMap
}

func NewProgressService(cfg *config.Config, steam StatsClient, store cache.Store, logger zerolog.Logger) *ProgressService {
	return &ProgressService{
		cfg:    cfg,
		steam:  steam,
		store:  store,
		logger: logger.With().Str("steam_id", cfg.SteamID).Logger(),
	}
}

// LoadGames returns the owned games, from memory or the cache unless force is
// set. A failed fetch is returned to the caller: nothing else works without it.
func (s *ProgressService) LoadGames(ctx context.Context, force bool) ([]domain.Game, error) {
	if !force {
		if s.games != nil {
			return s.games, nil
		}

		var games []domain.Game
		if s.loadSnapshot(ctx, cache.SnapshotGames, &games) {
			s.logger.Debug().Int("count", len(games)).Msg("loading games from cache")
			s.games = games
			return s.games, nil
		}
	}

	s.logger.Info().Bool("force", force).Msg("getting games list")

	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	resp, err := s.steam.GetOwnedGames(apiCtx, s.cfg.SteamID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch owned games")
		return nil, fmt.Errorf("failed to fetch owned games: %w", err)
	}

	games := make([]domain.Game, 0, len(resp.Response.Games))
	for _, g := range resp.Response.Games {
		games = append(games, domain.Game{
			AppID:           g.AppID,
			Name:            g.Name,
			PlaytimeForever: g.PlaytimeForever,
		})
	}

	s.games = games
	s.saveSnapshot(ctx, cache.SnapshotGames, games)

	s.logger.Info().Int("count", len(games)).Msg("games fetched successfully")
	return s.games, nil
}

type fetchResult struct {
	game    domain.Game
	records []domain.AchievementRecord
	err     error
}

// LoadAchievements returns achievements per game. On a cache miss it loads the
// games without forcing them, then fetches each game in turn. Games whose fetch
// fails are reported and left out; the partial map is cached as is.
func (s *ProgressService) LoadAchievements(ctx context.Context, force bool) (domain.AchievementsMap, error) {
	if !force {
		if s.achievements != nil {
			return s.achievements, nil
		}

		var achievements domain.AchievementsMap
		if s.loadSnapshot(ctx, cache.SnapshotAchievements, &achievements) {
			s.logger.Debug().Int("count", len(achievements)).Msg("loading achievements from cache")
			s.achievements = achievements
			return s.achievements, nil
		}
	}

	games, err := s.LoadGames(ctx, false)
	if err != nil {
		return nil, err
	}

	results := make([]fetchResult, 0, len(games))
	for _, g := range games {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("achievement fetch interrupted: %w", err)
		}
		results = append(results, s.fetchAchievements(ctx, g))
	}

	achievements := make(domain.AchievementsMap, len(results))
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			s.logger.Warn().
				Err(r.err).
				Int64("appid", r.game.AppID).
				Str("game", r.game.Name).
				Msg("error getting achievements")
			continue
		}
		achievements[r.game.AppID] = r.records
	}

	s.achievements = achievements
	s.saveSnapshot(ctx, cache.SnapshotAchievements, achievements)

	s.logger.Info().
		Int("games", len(games)).
		Int("fetched", len(achievements)).
		Int("failed", failed).
		Msg("achievements fetched")
	return s.achievements, nil
}

func (s *ProgressService) fetchAchievements(ctx context.Context, game domain.Game) fetchResult {
	s.logger.Debug().Int64("appid", game.AppID).Str("game", game.Name).Msg("getting achievements")

	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	resp, err := s.steam.GetPlayerAchievements(apiCtx, game.AppID, s.cfg.SteamID)
	if err != nil {
		return fetchResult{game: game, err: err}
	}

	records := make([]domain.AchievementRecord, 0, len(resp.PlayerStats.Achievements))
	for _, a := range resp.PlayerStats.Achievements {
		records = append(records, domain.AchievementRecord{
			APIName:     a.APIName,
			Achieved:    bool(a.Achieved),
			UnlockTime:  a.UnlockTime,
			Name:        a.Name,
			Description: a.Description,
		})
	}
	return fetchResult{game: game, records: records}
}

// Summarize joins games with their achievements and sorts the rows ascending by
// key. Games without achievement data, or with zero achievements, are skipped.
func (s *ProgressService) Summarize(ctx context.Context, key domain.SortKey) ([]domain.ProgressRow, error) {
	force := s.cfg.Refresh

	games, err := s.LoadGames(ctx, force)
	if err != nil {
		return nil, err
	}
	achievements, err := s.LoadAchievements(ctx, force)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.Game, len(games))
	for _, g := range games {
		byID[g.AppID] = g
	}

	rows := make([]domain.ProgressRow, 0, len(achievements))
	for appID, records := range achievements {
		game, ok := byID[appID]
		if !ok {
			s.logger.Debug().Int64("appid", appID).Msg("achievements for a game no longer owned, skipping")
			continue
		}

		c := ComputeCompletion(records)
		if c.Total == 0 {
			s.logger.Debug().Int64("appid", appID).Str("game", game.Name).Msg("game has no achievements, skipping")
			continue
		}

		rows = append(rows, domain.ProgressRow{
			AppID:     appID,
			Name:      game.Name,
			Achieved:  c.Achieved,
			Total:     c.Total,
			Percent:   c.Percent,
			Remaining: c.Remaining,
		})
	}

	if err := SortRows(rows, key); err != nil {
		return nil, err
	}
	return rows, nil
}

// SortRows orders rows ascending by key, then by name and appid.
func SortRows(rows []domain.ProgressRow, key domain.SortKey) error {
	var field func(domain.ProgressRow) int
	switch key {
	case domain.SortByPercent:
		field = func(r domain.ProgressRow) int { return r.Percent }
	case domain.SortByTotal:
		field = func(r domain.ProgressRow) int { return r.Remaining }
	default:
		return fmt.Errorf("%w: %q", errUnknownSortKey, key)
	}

	slices.SortStableFunc(rows, func(a, b domain.ProgressRow) int {
		return cmp.Or(
			cmp.Compare(field(a), field(b)),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.AppID, b.AppID),
		)
	})
	return nil
}

// loadSnapshot reports whether dest was filled from the cache. Unreadable
// snapshots count as misses.
func (s *ProgressService) loadSnapshot(ctx context.Context, name string, dest any) bool {
	err := s.store.Load(ctx, name, dest)
	switch {
	case err == nil:
		return true
	case errors.Is(err, cache.ErrCacheMiss):
		s.logger.Debug().Str("snapshot", name).Msg("cache miss")
	default:
		s.logger.Warn().Err(err).Str("snapshot", name).Msg("unreadable cache snapshot, refetching")
	}
	return false
}

func (s *ProgressService) saveSnapshot(ctx context.Context, name string, value any) {
	if err := s.store.Save(ctx, name, value); err != nil {
		s.logger.Warn().Err(err).Str("snapshot", name).Msg("failed to save cache snapshot")
	}
}
