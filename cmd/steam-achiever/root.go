package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"steam-achiever/internal/config"
	"steam-achiever/internal/constants"
	fxmodules "steam-achiever/internal/fx"
	"steam-achiever/internal/logger"
	"steam-achiever/internal/report"
	"steam-achiever/internal/service"
)

const rootCmdExample = `  # Games closest to completion last
  steam-achiever -k $STEAM_API_KEY -i 76561197960287930

  # Fewest achievements remaining first, ignoring the cache
  steam-achiever --sortby total --refresh`

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags config.Flags

	cmd := &cobra.Command{
		Use:   "steam-achiever",
		Short: "Report achievement completion across a Steam library",
		Long: "steam-achiever fetches the games a Steam user owns and their achievements, " +
			"caches them per user, and prints one line per game sorted by completion.",
		Example:       rootCmdExample,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd.Context(), cmd, flags, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.BoolVarP(&flags.Refresh, "refresh", "r", false, "refetch games and achievements instead of using the cache")
	f.StringVarP(&flags.SortBy, "sortby", "s", "", `sort key, "percent" or "total" (default "percent")`)
	f.StringVarP(&flags.APIKey, "key", "k", "", "Steam Web API key (env STEAM_API_KEY)")
	f.StringVarP(&flags.SteamID, "id", "i", "", "64-bit Steam ID (env STEAM_ID)")
	f.StringVar(&flags.CacheDir, "cache-dir", "", "directory holding cache snapshots (env STEAM_ACHIEVER_CACHE_DIR)")
	f.StringVar(&flags.CacheBackend, "cache-backend", "", `cache backend, "file" or "sqlite" (default "file")`)
	f.StringVar(&flags.BaseURL, "base-url", "", "Steam Web API base URL (env STEAM_API_BASE_URL)")
	f.StringVar(&flags.EnvFile, "env-file", "", `dotenv file to read (default ".env")`)
	f.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn or error (env LOG_LEVEL)")
	f.BoolVar(&flags.LogJSON, "log-json", false, "write logs as JSON")

	return cmd
}

func execute(ctx context.Context, cmd *cobra.Command, flags config.Flags, stdout, stderr io.Writer) error {
	level := flags.LogLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	log := logger.SetLevel(stderr, logger.ParseLevel(level), flags.LogJSON)

	cfg, err := config.Load(flags, log)
	if err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			cmd.PrintErr(cmd.UsageString())
		}
		return err
	}
	log = logger.SetLevel(stderr, logger.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, log),
		fxmodules.Module,
		fx.Provide(func() *report.Printer { return report.NewPrinter(stdout) }),
		fx.Invoke(registerReport),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	// a failed start rolls back the hooks that already ran
	if err := app.Start(ctx); err != nil {
		return err
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	return app.Stop(stopCtx)
}

func registerReport(
	lc fx.Lifecycle,
	cfg *config.Config,
	svc *service.ProgressService,
	printer *report.Printer,
	log zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			rows, err := svc.Summarize(ctx, cfg.SortBy)
			if err != nil {
				log.Error().Err(err).Msg("failed to summarize achievements")
				return err
			}
			log.Debug().Int("rows", len(rows)).Str("sort_by", string(cfg.SortBy)).Msg("printing report")
			return printer.Print(rows)
		},
	})
}
