// Package server wires the account service together: configuration, logging,
// the database pool with migrations, object storage, business services, and
// the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ursa1337/account-service/internal/clock"
	"github.com/Ursa1337/account-service/internal/logging"
	"github.com/Ursa1337/account-service/internal/server/config"
	"github.com/Ursa1337/account-service/internal/server/hash"
	"github.com/Ursa1337/account-service/internal/server/httpserver"
	"github.com/Ursa1337/account-service/internal/server/repositories/repomanager"
	"github.com/Ursa1337/account-service/internal/server/services"
	"github.com/Ursa1337/account-service/internal/server/storage"
	"github.com/Ursa1337/account-service/internal/server/token"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpserver.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	tokens := token.NewGenerator()
	hasher := hash.NewBcrypt(cfg.BcryptCost)
	clk := clock.System{}

	accountService := services.NewAccountService(db, repos, tokens, hasher, clk, cfg)
	avatarService := services.NewAvatarService(db, repos, blobs, tokens, cfg)

	srv := httpserver.NewServer(cfg.EndpointAddr, logger, accountService, avatarService)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

// Run serves until an interrupt or termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()
	defer app.db.Close()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddr)
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped", "error", err.Error())
		return err
	}
	app.logger.Info(ctx, "app stopped")
	return nil
}
