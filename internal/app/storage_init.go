package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/adepetun22/shopapp/internal/domain"
	healthcheck "github.com/adepetun22/shopapp/internal/health"
	"github.com/adepetun22/shopapp/internal/storage/memory"
	"github.com/adepetun22/shopapp/internal/storage/postgres"
)

// runtimeDependencies — репозитории и вспомогательные ручки, собранные
// под выбранный драйвер хранилища.
type runtimeDependencies struct {
	products        domain.ProductRepository
	users           domain.UserRepository
	orders          domain.OrderRepository
	reviews         domain.ReviewRepository
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository
	storageChecker  healthcheck.Checker
	closeFn         func() error
}

// initRuntimeDependencies создаёт репозитории под cfg.StorageDriver.
// Для postgres открывает пул и опционально прогоняет миграции.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		return runtimeDependencies{
			products:        memory.NewProductRepository(),
			users:           memory.NewUserRepository(),
			orders:          memory.NewOrderRepository(),
			reviews:         memory.NewReviewRepository(),
			outboxRepo:      memory.NewOutboxRepository(),
			idempotencyRepo: memory.NewIdempotencyRepository(),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return runtimeDependencies{}, fmt.Errorf("postgres storage driver requires a DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return runtimeDependencies{}, fmt.Errorf("open postgres: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return runtimeDependencies{}, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}

		return runtimeDependencies{
			products:        postgres.NewProductRepository(store),
			users:           postgres.NewUserRepository(store),
			orders:          postgres.NewOrderRepository(store),
			reviews:         postgres.NewReviewRepository(store),
			outboxRepo:      postgres.NewOutboxRepository(store),
			idempotencyRepo: postgres.NewIdempotencyRepository(store),
			storageChecker: healthcheck.NewSimpleChecker("postgres", func() error {
				return store.Ping(context.Background())
			}),
			closeFn: store.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}
