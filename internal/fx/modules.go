package fx

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"steam-achiever/internal/api"
	"steam-achiever/internal/cache"
	"steam-achiever/internal/config"
	"steam-achiever/internal/service"
)

// ProvideStore opens the configured cache backend and closes it when the app stops.
func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (cache.Store, error) {
	store, err := cache.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing cache")
			}
			return nil
		},
	})
	return store, nil
}

// Module expects a *config.Config and a zerolog.Logger to be supplied.
var Module = fx.Options(
	// cache
	fx.Provide(ProvideStore),
	// api client
	fx.Provide(fx.Annotate(api.NewSteamClient, fx.As(new(service.StatsClient)))),
	// svc
	fx.Provide(service.NewProgressService),
)
