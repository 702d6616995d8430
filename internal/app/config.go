package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/messaging/kafka"
)

// StorageDriver задаёт тип хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverSQLite   StorageDriver = "sqlite"
)

const envPrefix = "RETAIL_"

// Config описывает настройки запуска CLI и демона.
type Config struct {
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool
	SQLitePath          string

	KafkaBrokers  string
	KafkaTopic    string
	KafkaDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// Порог backlog, после которого health отдаёт degraded.
	OutboxMaxPending int

	LogLevel string
}

// DefaultConfig возвращает настройки по умолчанию: локальный файл SQLite и метрики на :9090.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverSQLite,
		PostgresAutoMigrate: true,
		SQLitePath:          "retail.db",
		KafkaTopic:          kafka.TopicOrderEvents,
		KafkaDLQTopic:       kafka.TopicDeadLetterQueue,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		OutboxMaxPending:    1000,
		LogLevel:            "info",
	}
}

// LoadConfigFromEnv читает RETAIL_* переменные окружения поверх DefaultConfig.
// Некорректные значения игнорируются с предупреждением.
func LoadConfigFromEnv(logger *log.Entry) Config {
	return loadConfig(os.Getenv, logger)
}

func loadConfig(getenv func(string) string, logger *log.Entry) Config {
	if logger == nil {
		logger = log.WithField("component", "config")
	}
	env := envReader{getenv: getenv, logger: logger}
	cfg := DefaultConfig()

	cfg.MetricsAddr = env.string("METRICS_ADDR", cfg.MetricsAddr)
	cfg.PostgresDSN = env.string("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = env.bool("POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)
	cfg.SQLitePath = env.string("SQLITE_PATH", cfg.SQLitePath)
	cfg.KafkaBrokers = env.string("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = env.string("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.KafkaDLQTopic = env.string("KAFKA_DLQ_TOPIC", cfg.KafkaDLQTopic)
	cfg.OutboxPollInterval = env.duration("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = env.positiveInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = env.positiveInt("OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = env.duration("OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay)
	cfg.OutboxMaxPending = env.positiveInt("OUTBOX_MAX_PENDING", cfg.OutboxMaxPending)
	cfg.LogLevel = env.string("LOG_LEVEL", cfg.LogLevel)

	if raw := env.string("STORAGE_DRIVER", ""); raw != "" {
		switch driver := StorageDriver(strings.ToLower(raw)); driver {
		case StorageDriverMemory, StorageDriverPostgres, StorageDriverSQLite:
			cfg.StorageDriver = driver
		default:
			logger.WithField("value", raw).Warn("unknown RETAIL_STORAGE_DRIVER, using default")
		}
	}

	return cfg
}

// Brokers возвращает список Kafka-брокеров без пустых элементов.
func (c Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// SetupLogger настраивает глобальный logrus: текстовый формат с полным временем и уровень из конфигурации.
func SetupLogger(cfg Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("value", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

type envReader struct {
	getenv func(string) string
	logger *log.Entry
}

func (e envReader) string(key, fallback string) string {
	if v := strings.TrimSpace(e.getenv(envPrefix + key)); v != "" {
		return v
	}
	return fallback
}

func (e envReader) bool(key string, fallback bool) bool {
	raw := e.string(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.invalid(key, raw)
		return fallback
	}
	return v
}

func (e envReader) positiveInt(key string, fallback int) int {
	raw := e.string(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		e.invalid(key, raw)
		return fallback
	}
	return v
}

func (e envReader) duration(key string, fallback time.Duration) time.Duration {
	raw := e.string(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		e.invalid(key, raw)
		return fallback
	}
	return v
}

func (e envReader) invalid(key, raw string) {
	e.logger.WithFields(log.Fields{"key": envPrefix + key, "value": raw}).Warn("invalid config value, using default")
}
