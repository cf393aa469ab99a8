// Package server wires configuration, storage, services and transports
// together and runs the HTTP API and the gRPC health endpoint until a
// shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/auth"
	"github.com/dmitrijs2005/nizamla/internal/server/config"
	"github.com/dmitrijs2005/nizamla/internal/server/limiter"
	"github.com/dmitrijs2005/nizamla/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/nizamla/internal/server/rest"
	"github.com/dmitrijs2005/nizamla/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/nizamla/internal/server/grpc"
)

// Version is reported by /api/health/info. It is set at build time.
var Version = "dev"

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	redis  *redis.Client
	http   *rest.Server
	health *gs.HealthServer
}

// NewApp opens storage, applies migrations and builds every service. The
// returned App owns the store and Redis connections until Run returns.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	key, err := auth.NewSigningKey([]byte(c.SecretKey), c.Issuer, c.Audience, c.AccessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	policy, err := auth.NewRefreshTokenPolicy(c.RefreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}

	repos, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, repos: repos}

	var lim limiter.LoginLimiter = limiter.Nop{}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		lim = limiter.NewRedisLoginLimiter(app.redis, limiter.Config{
			MaxAttempts: c.LoginMaxAttempts,
			Lockout:     c.LoginLockoutDuration,
		})
	}

	tokens := auth.NewTokenIssuer(key)
	handler := rest.NewHandler(rest.Deps{
		Users:    services.NewUserService(repos, lim, logger.With("module", "users")),
		Sessions: services.NewSessionManager(repos, tokens, policy, logger.With("module", "sessions")),
		Tasks:    services.NewTaskService(repos, logger.With("module", "tasks")),
		Store:    repos,
		Logger:   logger,
		Version:  Version,
	})

	app.http = rest.NewServer(c.HTTPAddr, rest.NewRouter(handler, tokens, c.CORSAllowedOrigins), c.ShutdownTimeout, logger)
	app.health = gs.NewHealthServer(c.GRPCHealthAddr, repos, c.HealthCheckInterval, logger)
	return app, nil
}

func openStore(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.StorageDriver == config.StorageMemory {
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	return repomanager.OpenPostgres(ctx, c.DatabaseDSN)
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

func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves until a signal arrives or either server fails, then closes
// the store and Redis.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageDriver)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "grpc_health", app.health.Run)
	}()

	wg.Wait()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(context.Background(), "redis close failed", "error", err)
		}
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Warn(context.Background(), "store close failed", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
