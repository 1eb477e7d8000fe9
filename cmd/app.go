package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"launchpad/internal/adapter"
	"launchpad/internal/bootstrap"
	"launchpad/internal/config"
	cronpkg "launchpad/internal/cron"
	"launchpad/internal/lease"
	"launchpad/internal/queue"
	"launchpad/internal/repository"
	"launchpad/internal/tasks"
)

// app holds every long-lived component of one process.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB
	redis      *redis.Client
	queue      queue.Queue
	leases     lease.Locker
	registry   *adapter.Registry
	repos      *tasks.Repos
	dispatcher *tasks.Dispatcher
	service    *tasks.Service
	pool       *queue.Pool
	scheduler  *cronpkg.Scheduler
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// queueMode says whether a process may fall back to an in-memory queue.
type queueMode int

const (
	// sharedQueue processes hand tasks to other processes and need Redis.
	sharedQueue queueMode = iota
	// inProcessQueue runs submission, cron and workers in one process,
	// so memory is shared between them.
	inProcessQueue
)

// errRedisRequired is returned when a process that shares work with other
// processes starts without Redis.
var errRedisRequired = errors.New("redis is required: set REDIS_ADDR (only serve can run on an in-memory queue)")

// openQueue connects the task queue and lease locker.
func openQueue(cfg *config.Config, logger *zap.Logger, mode queueMode) (*redis.Client, queue.Queue, lease.Locker, error) {
	opts := queue.Options{
		Prefix:            cfg.Queue.Prefix,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
		MaxDeliveries:     cfg.Queue.MaxDeliveries,
	}
	prefix := cfg.Queue.Prefix + ":lease"

	client, err := config.NewRedis(&cfg.Redis)
	if client != nil {
		return client, queue.NewRedis(client, opts), lease.New(client, prefix), nil
	}

	if mode != inProcessQueue {
		if err != nil {
			return nil, nil, nil, errors.Mark(errors.Wrap(err, "connect to redis"), errRedisRequired)
		}
		return nil, nil, nil, errRedisRequired
	}
	if err != nil {
		logger.Warn("Redis unavailable, using in-memory queue and leases", zap.Error(err))
	} else {
		logger.Warn("REDIS_ADDR not set, tasks live in process memory only")
	}
	return nil, queue.NewMemory(opts), lease.NewMemory(), nil
}

func newApp(mode queueMode) (*app, error) {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	// --- Logger ---
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	if err := bootstrap.MigrateAndSeed(db); err != nil {
		return nil, errors.Wrap(err, "bootstrap database schema")
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	// --- Queue and leases ---
	a.redis, a.queue, a.leases, err = openQueue(cfg, logger, mode)
	if err != nil {
		return nil, err
	}

	// --- Adapters ---
	a.registry, err = adapter.NewRegistryFromConfig(cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "build adapter registry")
	}

	// --- Core ---
	a.repos = &tasks.Repos{
		Posts:        repository.NewPostRepository(db),
		Schedules:    repository.NewScheduleRepository(db),
		Interactions: repository.NewInteractionRepository(db),
		Agents:       repository.NewAgentRepository(db),
		Campaigns:    repository.NewCampaignRepository(db),
	}
	a.dispatcher = tasks.NewDispatcher(a.repos, a.registry, a.queue, a.leases, tasks.PolicyFromConfig(cfg), logger)
	a.service = tasks.NewService(a.repos, a.queue, cfg.Retry.DefaultMaxRetries, logger)

	a.pool = queue.NewPool(a.queue, queue.PoolOptions{
		Workers:         cfg.Queue.Workers,
		PollInterval:    cfg.Queue.PollInterval,
		RedeliveryDelay: cfg.Queue.RedeliveryDelay,
	}, logger)
	a.dispatcher.Register(a.pool)

	a.scheduler = cronpkg.New(cfg, a.repos, a.queue, a.registry, logger)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
