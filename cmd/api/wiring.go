package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dejobratic/ordersubmit/internal/config"
	"github.com/dejobratic/ordersubmit/internal/database"
	"github.com/dejobratic/ordersubmit/internal/events"
	"github.com/dejobratic/ordersubmit/internal/submissions/adapters"
	"github.com/dejobratic/ordersubmit/internal/submissions/adapters/firestore"
	"github.com/dejobratic/ordersubmit/internal/submissions/adapters/memory"
	"github.com/dejobratic/ordersubmit/internal/submissions/adapters/postgres"
	redisstore "github.com/dejobratic/ordersubmit/internal/submissions/adapters/redis"
	"github.com/dejobratic/ordersubmit/internal/submissions/ports"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// backend is the selected result store plus what /readyz and shutdown need.
type backend struct {
	store  ports.ResultStore
	pinger pinger
	close  func()
}

func (b backend) ping(ctx context.Context) error {
	if b.pinger == nil {
		return nil
	}
	return b.pinger.Ping(ctx)
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *database.Metrics) (backend, error) {
	b := backend{close: func() {}}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		if cfg.Database.AutoMigrate {
			logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
			version, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
			if err != nil {
				return b, fmt.Errorf("run migrations: %w", err)
			}
			logger.Info("migrations completed successfully", "version", version)
		}

		pool, err := database.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return b, err
		}
		store := postgres.NewStore(pool)
		b.store, b.pinger, b.close = store, store, pool.Close

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := redisstore.NewStore(client, cfg.Redis.KeyPrefix)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return b, err
		}
		b.store, b.pinger = store, store
		b.close = func() { _ = client.Close() }

	case config.BackendFirestore:
		if cfg.Firestore.CredentialsFile != "" {
			logger.Info("using firestore credentials file", "path", cfg.Firestore.CredentialsFile)
		}
		client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return b, err
		}
		store := firestore.NewStore(client, cfg.Firestore.Collection)
		b.store, b.pinger = store, store
		b.close = func() { _ = client.Close() }

	case config.BackendMemory:
		logger.Warn("using in-memory result store; results are lost on restart and not shared between replicas")
		b.store = memory.NewStore()

	default:
		return b, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	b.store = adapters.NewObservableStore(b.store, cfg.Store.Backend, metrics)
	return b, nil
}

func openNotifier(cfg *config.Config, logger *slog.Logger, meter metric.Meter) (ports.SubmissionNotifier, func(), error) {
	if cfg.NATS.URL == "" {
		return events.NewNoopNotifier(logger), func() {}, nil
	}

	metrics, err := events.NewMetrics(meter)
	if err != nil {
		return nil, nil, err
	}

	conn, err := events.Connect(cfg.NATS.URL, cfg.Service.Name)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("publishing submission events", "subject", cfg.NATS.Subject)

	closeConn := func() {
		if err := conn.Drain(); err != nil {
			logger.Warn("nats drain failed", "error", err)
		}
	}
	return events.NewNATSNotifier(conn, cfg.NATS.Subject, metrics), closeConn, nil
}
