// Package server wires the configured storage, services and transports
// together and runs them until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/advn1/rback/internal/logging"
	"github.com/advn1/rback/internal/server/auth"
	"github.com/advn1/rback/internal/server/config"
	"github.com/advn1/rback/internal/server/hasher"
	"github.com/advn1/rback/internal/server/httpapi"
	"github.com/advn1/rback/internal/server/repositories/repomanager"
	"github.com/advn1/rback/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/advn1/rback/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	rdb         redis.UniversalClient
	codec       *auth.Codec
	userService *services.UserService
}

// NewApp opens the database (and Redis when it backs sessions), applies
// migrations and builds the user service.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var rm repomanager.RepositoryManager
	switch c.SessionStore {
	case config.SessionStoreRedis:
		app.rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
		if err := app.rdb.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		rm = repomanager.NewRedisRepositoryManager(app.rdb, c.RedisPrefix)
	default:
		rm = repomanager.NewPostgresRepositoryManager()
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	h, err := hasher.New(hasher.DefaultParams, []byte(c.Salt))
	if err != nil {
		app.Close()
		return nil, err
	}

	app.codec, err = auth.NewCodec([]byte(c.AccessKey), []byte(c.RefreshKey))
	if err != nil {
		app.Close()
		return nil, err
	}

	claims := auth.NewClaimsFactory(c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)

	app.userService, err = services.NewUserService(db, rm, h, app.codec, claims, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	logger.Info(ctx, "App initialized", "session_store", c.SessionStore)
	return app, nil
}

// Close releases the database and Redis connections.
func (app *App) Close() error {
	var errs []error
	if app.rdb != nil {
		errs = append(errs, app.rdb.Close())
	}
	errs = append(errs, app.db.Close())
	return errors.Join(errs...)
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.userService, app.codec)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(app.userService, app.codec, app.logger)
	s := httpapi.NewServer(app.config.HTTPAddr, router, app.config.ShutdownTimeout, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves HTTP and gRPC until ctx is cancelled, a signal arrives or a
// server fails, then closes storage.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "closing storage", "error", err.Error())
	}
	app.logger.Info(ctx, "App stopped")
}
