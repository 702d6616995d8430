package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/retail/internal/health"
	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/catalog"
	"github.com/vladislavdragonenkov/retail/internal/service/customer"
	"github.com/vladislavdragonenkov/retail/internal/service/order"
	"github.com/vladislavdragonenkov/retail/internal/service/outbox"
	"github.com/vladislavdragonenkov/retail/internal/service/payment"
	"github.com/vladislavdragonenkov/retail/internal/service/reporting"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
	"github.com/vladislavdragonenkov/retail/internal/storage/postgres"
	"github.com/vladislavdragonenkov/retail/internal/storage/sqlite"
)

// ErrKafkaNotConfigured возвращается при ретрансляции outbox без брокеров.
var ErrKafkaNotConfigured = errors.New("kafka brokers are not configured (set RETAIL_KAFKA_BROKERS)")

type runtimeDependencies struct {
	store          domain.Store
	storageChecker healthcheck.Checker
	closeFn        func() error
}

// initRuntimeDependencies открывает хранилище, выбранное в cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore()
		logger.Info("using in-memory storage")
		return newRuntimeDependencies(store), nil

	case StorageDriverSQLite:
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			path = sqlite.MemoryPath
		}
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", path).Info("using sqlite storage")
		return newRuntimeDependencies(store), nil

	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, fmt.Errorf("postgres dsn is required for storage driver %q (set RETAIL_POSTGRES_DSN)", cfg.StorageDriver)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		logger.Info("using postgres storage")
		return newRuntimeDependencies(store), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func newRuntimeDependencies(store domain.Store) *runtimeDependencies {
	return &runtimeDependencies{
		store:          store,
		storageChecker: healthcheck.NewPingChecker("storage", store.Ping, 0),
		closeFn:        store.Close,
	}
}

// Runtime держит открытое хранилище и собранные поверх него сервисы.
type Runtime struct {
	Store     domain.Store
	Catalog   *catalog.Service
	Customers *customer.Service
	Orders    *order.Service
	Payments  *payment.Service
	Reports   *reporting.Service

	cfg            Config
	logger         *log.Entry
	storageChecker healthcheck.Checker
	closeFn        func() error
}

// NewRuntime открывает хранилище и связывает сервисы между собой.
func NewRuntime(ctx context.Context, cfg Config, logger *log.Entry) (*Runtime, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.NewWorkflowMetrics()
	payments := payment.NewService(deps.store, logger.WithField("service", "payment"), m)

	return &Runtime{
		Store:          deps.store,
		Catalog:        catalog.NewService(deps.store, logger.WithField("service", "catalog")),
		Customers:      customer.NewService(deps.store, logger.WithField("service", "customer")),
		Orders:         order.NewService(deps.store, payments, logger.WithField("service", "order"), m),
		Payments:       payments,
		Reports:        reporting.NewService(deps.store.Repositories().Reports),
		cfg:            cfg,
		logger:         logger,
		storageChecker: deps.storageChecker,
		closeFn:        deps.closeFn,
	}, nil
}

// RelayOutbox выполняет один цикл публикации outbox в Kafka.
func (r *Runtime) RelayOutbox(ctx context.Context) (outbox.Result, error) {
	if len(r.cfg.Brokers()) == 0 {
		return outbox.Result{}, ErrKafkaNotConfigured
	}
	producer, err := initKafkaProducer(r.cfg.KafkaBrokers, r.logger)
	if err != nil {
		return outbox.Result{}, err
	}
	defer closeKafka(producer, r.logger)

	return r.relayOutbox(ctx, producer)
}

func (r *Runtime) relayOutbox(ctx context.Context, producer *kafka.Producer) (outbox.Result, error) {
	return newOutboxWorker(r.cfg, r.Store.Repositories().Outbox, producer, r.logger).ProcessOnce(ctx)
}

// Close закрывает хранилище.
func (r *Runtime) Close() error {
	if r == nil || r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}
