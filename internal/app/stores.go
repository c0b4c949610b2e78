package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/vingo-review/internal/config"
	"github.com/utafrali/vingo-review/internal/repository"
	"github.com/utafrali/vingo-review/internal/repository/memory"
	mongorepo "github.com/utafrali/vingo-review/internal/repository/mongo"
	"github.com/utafrali/vingo-review/internal/repository/postgres"
	"github.com/utafrali/vingo-review/migrations"
	"github.com/utafrali/vingo-review/pkg/database"
	"github.com/utafrali/vingo-review/pkg/health"
)

// stores groups the storage ports of one backend.
type stores struct {
	reviews repository.ReviewRepository
	orders  repository.OrderReader
	items   repository.ItemRatingWriter
	authors repository.AuthorReader

	backend string
	ping    health.Checker
	close   func(context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.BackendMongo:
		return openMongo(ctx, cfg, logger)
	default:
		store := memory.New()
		logger.Warn("using in-memory review store; data is lost on restart")
		return &stores{
			reviews: store,
			orders:  store,
			items:   store,
			authors: store,
			backend: config.BackendMemory,
			ping:    func(context.Context) error { return nil },
			close:   func(context.Context) error { return nil },
		}, nil
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	pgCfg := cfg.PostgresConfig()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	database.RegisterPoolMetrics(pool, cfg.ServiceName)
	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

	return &stores{
		reviews: postgres.NewReviewRepository(pool),
		orders:  postgres.NewOrderRepository(pool),
		items:   postgres.NewItemRepository(pool),
		authors: postgres.NewUserRepository(pool),
		backend: config.BackendPostgres,
		ping:    pool.Ping,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	client, db, err := database.NewMongoDatabase(ctx, database.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDatabase))

	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure mongo indexes: %w", err)
	}

	return &stores{
		reviews: mongorepo.NewReviewRepository(db),
		orders:  mongorepo.NewOrderRepository(db),
		items:   mongorepo.NewItemRepository(db),
		authors: mongorepo.NewUserRepository(db),
		backend: config.BackendMongo,
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		close: client.Disconnect,
	}, nil
}
