// Package server initializes and runs the script repository server: it
// opens the announcement database, runs migrations, selects the listing
// cache backend, wires the services and starts the HTTP front.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/perfcanvas/scriptstore/internal/logging"
	"github.com/perfcanvas/scriptstore/internal/server/cache"
	"github.com/perfcanvas/scriptstore/internal/server/config"
	internalhttp "github.com/perfcanvas/scriptstore/internal/server/http"
	"github.com/perfcanvas/scriptstore/internal/server/migrations"
	"github.com/perfcanvas/scriptstore/internal/server/repositories/announcements"
	"github.com/perfcanvas/scriptstore/internal/server/script"
	"github.com/perfcanvas/scriptstore/internal/server/services"
	"github.com/perfcanvas/scriptstore/internal/server/vcs"
)

type App struct {
	config              *config.Config
	logger              logging.Logger
	db                  *sql.DB
	fileEntryService    *services.FileEntryService
	announcementService *services.AnnouncementService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	entryCache := newEntryCache(cfg)
	gitClient := vcs.NewGitClient(cfg.RepoRoot)

	fes := services.NewFileEntryService(gitClient, entryCache, script.DefaultRegistry(), logger, cfg.ListingRetryDelay)
	as := services.NewAnnouncementService(announcements.NewPostgresRepository(db), logger)

	return &App{
		config:              cfg,
		logger:              logger,
		db:                  db,
		fileEntryService:    fes,
		announcementService: as,
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// newEntryCache picks the cache backend: Redis when an address is
// configured, otherwise the in-process cache.
func newEntryCache(cfg *config.Config) cache.EntryCache {
	if cfg.RedisAddr != "" {
		return cache.NewRedisCache(cfg.RedisAddr)
	}
	return cache.NewMemoryCache()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := internalhttp.NewServer(app.config.BindAddr, app.logger, app.fileEntryService, app.announcementService, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.fileEntryService.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
