// Package server wires configuration, persistence, storage, cache and queue
// into the HTTP API and the background worker.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/admission"
	"github.com/dmitrijs2005/fileshare/internal/server/cache"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/dmitrijs2005/fileshare/internal/server/httpapi"
	"github.com/dmitrijs2005/fileshare/internal/server/queue"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/memory"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fileshare/internal/server/services"
	"github.com/dmitrijs2005/fileshare/internal/server/storage"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newStore = storage.New
)

type App struct {
	config *config.Config
	logger logging.Logger

	db     *sql.DB
	runner dbx.TxRunner
	repos  repomanager.RepositoryManager

	redis       *redis.Client
	asynqClient *asynq.Client
	closers     []io.Closer

	deps httpapi.Deps
}

// NewApp builds every dependency named by cfg. An empty DSN selects the
// in-memory repositories; an empty Redis address disables the list cache and
// records redemptions inline.
func NewApp(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	if out == nil {
		out = os.Stdout
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(out, cfg.LogFormat, level)
	if err != nil {
		return nil, err
	}

	app := &App{config: cfg, logger: logger}
	if err := app.initPersistence(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	blobs, err := newStore(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	var listCache cache.FileListCache = cache.Noop{}
	var audit services.AuditSink = queue.NewInlineAuditor(app.runner, app.repos)
	if cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		app.closers = append(app.closers, app.redis)
		if err := app.redis.Ping(ctx).Err(); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		listCache = cache.NewRedisListCache(app.redis, cfg.FileListCacheTTL, logger)

		// The worker writes audit rows to the shared database; without one
		// nothing would ever consume the queue.
		if app.db != nil {
			app.asynqClient = asynq.NewClient(app.redisOpt())
			app.closers = append(app.closers, app.asynqClient)
			audit = queue.NewAsynqAuditor(app.asynqClient)
		} else {
			logger.Info(ctx, "no database configured, redemption audit is written inline")
		}
	}

	users := services.NewUserService(app.runner, app.repos, cfg)
	files := services.NewFileService(app.runner, app.repos, blobs, listCache, logger)
	policy := admission.NewPolicy(cfg.MaxFilesPerUpload, cfg.MaxFileSizeBytes, cfg.AllowedContentTypes)

	app.deps = httpapi.Deps{
		Users:     users,
		Files:     files,
		Grants:    services.NewGrantService(app.runner, app.repos, users, listCache, logger),
		Links:     services.NewShareLinkService(app.runner, app.repos, files, audit, logger),
		Admission: admission.NewController(policy, blobs, files, logger),
	}
	return app, nil
}

func (app *App) initPersistence(ctx context.Context) error {
	if app.config.DatabaseDSN == "" {
		st := memory.New()
		app.runner, app.repos = st, st
		app.logger.Warn(ctx, "no database configured, data lives in memory only")
		return nil
	}

	db, err := openDB(app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.runner = dbx.NewSQLRunner(db, nil)
	app.repos = repomanager.NewPostgresRepositoryManager()
	return nil
}

func (app *App) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: app.config.RedisAddr, Password: app.config.RedisPassword, DB: app.config.RedisDB}
}

// Migrate applies pending schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	app.logger.Info(ctx, "migrations applied")
	return nil
}

// RunServer migrates the schema and serves HTTP until ctx is cancelled.
func (app *App) RunServer(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")
	if err := app.Migrate(ctx); err != nil {
		return err
	}
	return httpapi.NewHTTPServer(app.config, app.logger, app.deps).Run(ctx)
}

// RunWorker processes queued jobs and schedules periodic ones until ctx is
// cancelled. It needs both Redis and a shared database.
func (app *App) RunWorker(ctx context.Context) error {
	if app.config.RedisAddr == "" {
		return errors.New("worker needs a redis address")
	}
	if app.db == nil {
		return errors.New("worker needs a database")
	}

	srv := asynq.NewServer(app.redisOpt(), asynq.Config{Concurrency: app.config.WorkerConcurrency})
	scheduler := asynq.NewScheduler(app.redisOpt(), &asynq.SchedulerOpts{})
	if err := queue.RegisterPeriodic(scheduler, app.config.TokenPurgeSpec); err != nil {
		return err
	}
	processor := queue.NewProcessor(app.runner, app.repos, app.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(processor.Handler()); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		app.logger.Info(gctx, "worker started", "concurrency", app.config.WorkerConcurrency)
		<-gctx.Done()
		srv.Shutdown()
		return nil
	})
	g.Go(func() error {
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-gctx.Done()
		scheduler.Shutdown()
		return nil
	})
	return g.Wait()
}

// Close releases connections in reverse order of creation.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
