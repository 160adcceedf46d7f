// Package server wires the contactbook server together: logging, the
// connection pool, schema migrations, services and the HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/cryptox"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/httpapi"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	pool           *dbx.Pool
	httpServer     *httpapi.Server
	userService    *services.UserService
	contactService *services.ContactService
	closeLogger    func()
}

// seams for tests
var (
	openPool = func(ctx context.Context, dsn string, cfg dbx.PoolConfig) (*dbx.Pool, error) {
		return dbx.Open(ctx, "pgx", dsn, cfg)
	}
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

// newLogger picks the logging backend named by format.
func newLogger(format string) (logging.Logger, func(), error) {
	switch format {
	case "", "json":
		return logging.NewJSONLogger(os.Stdout, slog.LevelInfo), func() {}, nil
	case "text":
		return logging.NewTextLogger(os.Stdout, slog.LevelInfo), func() {}, nil
	case "zap":
		z, err := logging.NewZapProduction()
		if err != nil {
			return nil, nil, err
		}
		return z, func() { _ = z.Sync() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", format)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, closeLogger, err := newLogger(c.LogFormat)
	if err != nil {
		return nil, err
	}

	secret := c.SecretKey
	if secret == "" {
		secret, err = common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("generate secret key: %w", err)
		}
		logger.Warn(ctx, "no secret key configured, sessions will not survive a restart")
	}

	hasher, err := cryptox.NewPasswordHasher(c.BcryptCost)
	if err != nil {
		return nil, err
	}

	pool, err := openPool(ctx, c.DatabaseDSN, dbx.PoolConfig{
		MaxConns:       c.MaxConns,
		MaxIdleConns:   c.MinIdleConns,
		AcquireTimeout: c.AcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, pool.DB()); err != nil {
		_ = pool.Close()
		return nil, err
	}

	us := services.NewUserService(pool, rm, hasher, logger.With("module", "user_service"))
	cs := services.NewContactService(pool, rm, logger.With("module", "contact_service"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(pool.DB(), "contactbook"),
	)

	hs, err := httpapi.NewServer(httpapi.Options{
		Address:    c.EndpointAddrHTTP,
		SecretKey:  []byte(secret),
		SessionTTL: c.SessionValidityDuration,
		Registry:   reg,
	}, logger, us, cs, pool)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &App{
		config:         c,
		logger:         logger,
		pool:           pool,
		httpServer:     hs,
		userService:    us,
		contactService: cs,
		closeLogger:    closeLogger,
	}, nil
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
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.pool.Close(); err != nil {
		app.logger.Error(ctx, "failed to close pool", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	app.closeLogger()
}
