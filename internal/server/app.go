// Package server initializes and runs the accountd application server.
// It opens the database, runs migrations, picks the session store backend,
// wires the services to the HTTP API, and handles graceful shutdown.
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

	"github.com/accountd/accountd/internal/logging"
	"github.com/accountd/accountd/internal/server/config"
	"github.com/accountd/accountd/internal/server/httpapi"
	"github.com/accountd/accountd/internal/server/repositories/repomanager"
	"github.com/accountd/accountd/internal/server/repositories/sessions"
	"github.com/accountd/accountd/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	accountService *services.AccountService
	authService    *services.AuthService
	sessionService *services.SessionService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	sessionRepo, err := newSessionRepository(cfg, db)
	if err != nil {
		return nil, err
	}

	ss := services.NewSessionService(sessionRepo, cfg, logger)
	as := services.NewAccountService(db, rm, ss, logger)
	aus := services.NewAuthService(db, rm, ss, logger)

	return &App{
		config:         cfg,
		logger:         logger,
		db:             db,
		accountService: as,
		authService:    aus,
		sessionService: ss,
	}, nil
}

// newSessionRepository selects the session store backend from config.
func newSessionRepository(cfg *config.Config, db *sql.DB) (sessions.Repository, error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisDSN)
		if err != nil {
			return nil, fmt.Errorf("redis config error: %w", err)
		}
		return sessions.NewRedisRepository(redis.NewClient(opts)), nil
	case config.SessionStorePostgres:
		return sessions.NewPostgresRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	handler := httpapi.NewHandler(app.accountService, app.authService, app.sessionService, app.config, app.logger)
	srv := httpapi.NewServer(app.config.EndpointAddr, handler.Routes(), app.logger)

	if err := srv.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sessionService.RunCleanup(ctx, app.config.SessionCleanupInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
}
