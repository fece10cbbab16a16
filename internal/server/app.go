// Package server assembles the authkeeper server: configuration, logging,
// signing keys, database, services and the gRPC and metrics endpoints.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/poolx"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/keystore"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/vault"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

// Seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newS3Getter    = keystore.NewS3Getter
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	keys     *keystore.Store
	metrics  *metrics.Metrics
	sessions *services.SessionService
}

// NewApp validates c, loads every signing key, connects to the database and
// applies migrations. Any failure is returned before a listener is opened.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	keys, err := loadKeys(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("signing keys: %w", err)
	}
	logger.Info(ctx, "Signing keys loaded", "kids", keys.KIDs(), "active", keys.ActiveKID())

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	m := metrics.New()
	pool := poolx.New(c.HashWorkers)

	issuer := tokens.NewIssuer(keys, pool,
		tokens.WithLifetimes(c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration),
		tokens.WithIssueHook(m.TokenIssued),
	)
	verifier := tokens.NewVerifier(keys)
	v := vault.New(pool)

	sessions := services.NewSessionService(db, rm, v, issuer, verifier, keys, logger)

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		keys:     keys,
		metrics:  m,
		sessions: sessions,
	}, nil
}

func loadKeys(ctx context.Context, c *config.Config) (*keystore.Store, error) {
	reader := &keystore.SourceReader{}
	for _, k := range c.SigningKeys {
		if strings.HasPrefix(k.Source, "s3://") {
			g, err := newS3Getter(ctx, keystore.S3Settings{
				Region:       c.S3Region,
				AccessKey:    c.S3RootUser,
				SecretKey:    c.S3RootPassword,
				BaseEndpoint: c.S3BaseEndpoint,
			})
			if err != nil {
				return nil, err
			}
			reader.S3 = g
			break
		}
	}
	return keystore.Load(ctx, c.SigningKeys, c.ActiveKID, reader)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.metrics)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "err", err)
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.metrics.Serve(ctx, app.config.MetricsAddr, app.logger); err != nil {
		app.logger.Error(ctx, "metrics server failed", "err", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or a
// listener fails, then closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "err", err)
	}
	app.logger.Info(ctx, "App stopped")
}
