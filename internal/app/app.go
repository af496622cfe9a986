// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 markdown-notes-app contributors
// https://github.com/testbenchcc/markdown-notes-app

// Package app wires configuration, services, the sync scheduler, and the
// HTTP server into a running process.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/testbenchcc/markdown-notes-app/internal/api"
	"github.com/testbenchcc/markdown-notes-app/internal/api/handlers"
	"github.com/testbenchcc/markdown-notes-app/internal/api/middleware"
	"github.com/testbenchcc/markdown-notes-app/internal/pkg/logger"
	"github.com/testbenchcc/markdown-notes-app/internal/services/notes"
	"github.com/testbenchcc/markdown-notes-app/internal/services/settings"
	notesync "github.com/testbenchcc/markdown-notes-app/internal/sync"
	"github.com/testbenchcc/markdown-notes-app/internal/sync/autosync"
	"github.com/testbenchcc/markdown-notes-app/internal/sync/githubfs"
	"github.com/testbenchcc/markdown-notes-app/internal/sync/local"
)

// Application holds the assembled components of a running server.
type Application struct {
	Config   *Config
	Logger   *logger.Logger
	Settings *settings.Service
	Notes    *notes.Service

	Syncer    notesync.Syncer
	Scheduler *autosync.Scheduler

	Server *api.Server
	Cron   *cron.Cron
}

// Run loads configuration, builds the application, and blocks until the
// process receives SIGINT or SIGTERM.
func Run(cfgFile string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}

// New assembles an Application from validated configuration.
func New(cfg *Config) (*Application, error) {
	log, err := logger.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, logger.OutputConfig{
		Output: cfg.Logging.Output,
		File: logger.FileConfig{
			Path:       cfg.Logging.File.Path,
			MaxSize:    cfg.Logging.File.MaxSize,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAge:     cfg.Logging.File.MaxAge,
			Compress:   cfg.Logging.File.Compress,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	if err := os.MkdirAll(cfg.Notes.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create notes directory: %w", err)
	}

	settingsSvc := settings.NewService(cfg.Notes.Dir, log)
	notesSvc := notes.NewService(cfg.Notes.Dir, settingsSvc, log)

	syncer, history, ignore, err := buildSyncBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	scheduler := autosync.New(syncer, settingsSvc.SchedulerSettings, log)

	compLevels := logger.NewComponentLevels(cfg.Logging.Level, cfg.Logging.Levels)
	httpLog := compLevels.ForComponent(log, "http")

	server := buildServer(cfg, log, httpLog, notesSvc, settingsSvc, scheduler, history, ignore)

	app := &Application{
		Config:    cfg,
		Logger:    log,
		Settings:  settingsSvc,
		Notes:     notesSvc,
		Syncer:    syncer,
		Scheduler: scheduler,
		Server:    server,
	}

	if cfg.Cleanup.Enabled {
		if err := app.scheduleImageCleanup(); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// buildSyncBackend constructs the configured Syncer plus the optional
// history and gitignore capabilities it supports.
func buildSyncBackend(cfg *Config, log *logger.Logger) (notesync.Syncer, handlers.Historian, handlers.IgnoreManager, error) {
	switch cfg.Sync.Mode {
	case "local":
		backend := local.New(local.Config{
			Root:      cfg.Notes.Dir,
			RemoteURL: cfg.Sync.RemoteURL,
			Token:     cfg.Sync.Token,
			Hostname:  cfg.Sync.Hostname,
		}, nil, log)
		return backend, backend, backend, nil

	case "github":
		backend := githubfs.New(githubfs.Config{
			Root:   cfg.Notes.Dir,
			Owner:  cfg.Sync.Owner,
			Repo:   cfg.Sync.Repo,
			Branch: cfg.Sync.Branch,
			Token:  cfg.Sync.Token,
		}, nil, log)
		// The API backend keeps no local git metadata, so gitignore
		// editing does not apply.
		return backend, backend, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("invalid sync mode: %s", cfg.Sync.Mode)
	}
}

// buildServer constructs the HTTP server with all handlers injected.
func buildServer(
	cfg *Config,
	log *logger.Logger,
	httpLog *logger.Logger,
	notesSvc *notes.Service,
	settingsSvc *settings.Service,
	scheduler *autosync.Scheduler,
	history handlers.Historian,
	ignore handlers.IgnoreManager,
) *api.Server {
	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = cfg.CORS.AllowedOrigins
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = cfg.Server.ReadTimeout
	serverConfig.WriteTimeout = cfg.Server.WriteTimeout
	serverConfig.IdleTimeout = cfg.Server.IdleTimeout
	serverConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	serverConfig.Version = Version
	serverConfig.Commit = Commit
	serverConfig.BuildTime = BuildTime
	serverConfig.Logger = httpLog
	serverConfig.RouterConfig = api.RouterConfig{
		CORSConfig:         corsConfig,
		RequestTimeout:     cfg.Server.RequestTimeout,
		EnableDebugLogging: cfg.Server.DebugLogging,
	}

	server := api.NewServer(serverConfig)

	h := server.Handlers()
	h.Notes = handlers.NewNotesHandler(notesSvc, log)
	h.Settings = handlers.NewSettingsHandler(settingsSvc, log)
	h.Sync = handlers.NewSyncHandler(scheduler, history, ignore, log)

	server.RegisterNotesRootHealth(func(ctx context.Context) error {
		info, err := os.Stat(cfg.Notes.Dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", cfg.Notes.Dir)
		}
		return nil
	})
	// 64 MiB free keeps note saves and image pastes working.
	server.RegisterDiskSpaceHealth(cfg.Notes.Dir, 64*1024*1024)

	server.Setup()
	return server
}

// scheduleImageCleanup registers the daily orphaned-image sweep.
func (app *Application) scheduleImageCleanup() error {
	app.Cron = cron.New()

	_, err := app.Cron.AddFunc(app.Config.Cleanup.Schedule, func() {
		result, err := app.Notes.CleanupImages(context.Background())
		if err != nil {
			app.Logger.Error("image cleanup failed", "error", err)
			return
		}
		app.Logger.Info("image cleanup finished",
			"deleted", len(result.Deleted),
			"kept", len(result.Kept),
		)
	})
	if err != nil {
		return fmt.Errorf("schedule image cleanup: %w", err)
	}
	return nil
}

// Run starts the scheduler, the cleanup job, and the HTTP server, then
// blocks until ctx is cancelled and everything is shut down.
func (app *Application) Run(ctx context.Context) error {
	// The config dump is sanitized so the token never reaches log output.
	app.Logger.Info("starting notesd",
		"version", Version,
		"addr", app.Server.Addr(),
		"config", logger.SanitizeStringMap(map[string]string{
			"notes_dir":  app.Config.Notes.Dir,
			"sync_mode":  app.Config.Sync.Mode,
			"remote_url": app.Config.Sync.RemoteURL,
			"token":      app.Config.Sync.Token,
		}),
	)

	app.Scheduler.Start(ctx)
	if app.Cron != nil {
		app.Cron.Start()
	}

	errChan := app.Server.StartAsync()

	select {
	case <-ctx.Done():
		app.Logger.Info("shutdown signal received")
	case err := <-errChan:
		if err != nil {
			app.shutdownBackground()
			return fmt.Errorf("server error: %w", err)
		}
	}

	app.shutdownBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	_ = app.Logger.Sync()
	return nil
}

// shutdownBackground stops the scheduler and the cron runner.
func (app *Application) shutdownBackground() {
	app.Scheduler.Stop()
	if app.Cron != nil {
		cronCtx := app.Cron.Stop()
		<-cronCtx.Done()
	}
}
