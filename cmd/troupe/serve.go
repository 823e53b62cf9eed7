package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/troupehq/troupe/internal/config"
	"github.com/troupehq/troupe/internal/dispatch"
	"github.com/troupehq/troupe/internal/generate"
	"github.com/troupehq/troupe/internal/handlers"
	"github.com/troupehq/troupe/internal/logger"
	"github.com/troupehq/troupe/internal/pipeline"
	"github.com/troupehq/troupe/internal/platform/discord"
	"github.com/troupehq/troupe/internal/plugin"
	"github.com/troupehq/troupe/internal/plugin/builtin"
	"github.com/troupehq/troupe/internal/prompt"
	"github.com/troupehq/troupe/internal/server"
	"github.com/troupehq/troupe/internal/settings"
	"github.com/troupehq/troupe/internal/store"
	"github.com/troupehq/troupe/internal/vision"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			providePool,
			provideStore,
			settings.NewService,
			generate.NewService,
			provideDiscordAdapter,
			provideRegistry,
			provideWatcher,
			provideAssembler,
			provideCaptioner,
			pipeline.NewQueue,
			provideIntake,
			provideDispatcher,
			provideWorker,
			handlers.NewPingHandler,
			provideAuthHandler,
			provideCharactersHandler,
			provideDimensionsHandler,
			provideConfigsHandler,
			providePresetsHandler,
			providePluginsHandler,
			provideServer,
		),
		fx.Invoke(
			startPlugins,
			startDiscord,
			startPipeline,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func providePool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := store.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := store.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { pool.Close(); return nil }})
	return pool, nil
}

func provideStore(log *slog.Logger, pool *pgxpool.Pool) store.Store {
	return store.NewPostgres(log, pool)
}

func provideDiscordAdapter(log *slog.Logger, cfg config.Config) (*discord.Adapter, error) {
	return discord.NewAdapter(log, cfg.Discord.Token)
}

func provideRegistry(log *slog.Logger, cfg config.Config) *plugin.Registry {
	return plugin.NewRegistry(log, cfg.Plugins.Dir, builtin.All()...)
}

func provideWatcher(log *slog.Logger, cfg config.Config, reg *plugin.Registry) (*plugin.Watcher, error) {
	if !cfg.Plugins.Watch {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.Plugins.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("plugin dir: %w", err)
	}
	return plugin.NewWatcher(log, reg, cfg.Plugins.Dir)
}

func provideAssembler(log *slog.Logger, st store.Store) *prompt.Assembler {
	return prompt.NewAssembler(log, st)
}

func provideCaptioner(log *slog.Logger, st store.Store, svc *settings.Service) *vision.Captioner {
	return vision.NewCaptioner(log, st, svc)
}

func provideIntake(log *slog.Logger, st store.Store, svc *settings.Service, q *pipeline.Queue, adapter *discord.Adapter) *pipeline.Intake {
	return pipeline.NewIntake(log, st, svc, q, adapter)
}

func provideDispatcher(log *slog.Logger, adapter *discord.Adapter) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(log, adapter, adapter)
}

func provideWorker(log *slog.Logger, q *pipeline.Queue, st store.Store, svc *settings.Service, reg *plugin.Registry, asm *prompt.Assembler, gen *generate.Service, adapter *discord.Adapter, captioner *vision.Captioner, dispatcher *dispatch.Dispatcher) *pipeline.Worker {
	return pipeline.NewWorker(log, q, st, svc, reg, asm, gen, adapter, adapter, captioner, dispatcher)
}

func provideAuthHandler(log *slog.Logger, cfg config.Config) *handlers.AuthHandler {
	expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil || expiresIn <= 0 {
		log.Warn("invalid jwt_expires_in, using 24h", slog.String("value", cfg.Auth.JWTExpiresIn))
		expiresIn = 24 * time.Hour
	}
	return handlers.NewAuthHandler(log, cfg.Admin, cfg.Auth.JWTSecret, expiresIn)
}

func provideCharactersHandler(log *slog.Logger, st store.Store) *handlers.CharactersHandler {
	return handlers.NewCharactersHandler(log, st)
}

func provideDimensionsHandler(log *slog.Logger, st store.Store) *handlers.DimensionsHandler {
	return handlers.NewDimensionsHandler(log, st)
}

func provideConfigsHandler(log *slog.Logger, st store.Store) *handlers.ConfigsHandler {
	return handlers.NewConfigsHandler(log, st)
}

func providePresetsHandler(log *slog.Logger, st store.Store) *handlers.PresetsHandler {
	return handlers.NewPresetsHandler(log, st)
}

func providePluginsHandler(log *slog.Logger, reg *plugin.Registry) *handlers.PluginsHandler {
	return handlers.NewPluginsHandler(log, reg)
}

func provideServer(cfg config.Config, ping *handlers.PingHandler, auth *handlers.AuthHandler, characters *handlers.CharactersHandler, dimensions *handlers.DimensionsHandler, configs *handlers.ConfigsHandler, presets *handlers.PresetsHandler, plugins *handlers.PluginsHandler) *server.Server {
	return server.NewServer(cfg.Server.Addr, cfg.Auth.JWTSecret, ping, auth, characters, dimensions, configs, presets, plugins)
}

func startPlugins(lc fx.Lifecycle, log *slog.Logger, reg *plugin.Registry, watcher *plugin.Watcher) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := reg.Reload(); err != nil {
				log.Warn("initial plugin load failed", slog.Any("error", err))
			}
			if watcher != nil {
				watcher.Start()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if watcher != nil {
				watcher.Stop()
			}
			return nil
		},
	})
}

func startDiscord(lc fx.Lifecycle, adapter *discord.Adapter) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return adapter.Open(ctx) },
		OnStop:  func(ctx context.Context) error { return adapter.Close() },
	})
}

func startPipeline(lc fx.Lifecycle, intake *pipeline.Intake, worker *pipeline.Worker, q *pipeline.Queue, adapter *discord.Adapter) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go intake.Run(ctx, adapter.Inbound())
			go worker.Run(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			q.Close()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
