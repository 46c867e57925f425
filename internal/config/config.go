// Package config provides configuration structures and validation for the settlement engine.
// It handles environment-based configuration for the HTTP surfaces, the databases, the
// message broker, the Horizon ledger connection and the settlement workers.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Metrics     MetricsConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Ledger      LedgerConfig
	Settlement  SettlementConfig
	Trustline   TrustlineConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// MetricsConfig configures the health and metrics listener of background processes
type MetricsConfig struct {
	Port int
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	SettlementTopic   string // Deposit settlement requests
	PaymentTopic      string // Incoming ledger payments
	NumPartitions     int
	ReplicationFactor int
	SettlementGroup   string
	PaymentGroup      string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration for payment de-duplication
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	DedupTTL time.Duration
}

// LedgerConfig contains the Horizon connection and the anchor's signing identity
type LedgerConfig struct {
	HorizonURL        string
	NetworkPassphrase string
	DistributionSeed  string // Signs create-account and payment submissions
	IssuerAccount     string
	AnchorAccount     string // Account watched for incoming withdrawal payments
	StartingBalance   string // Native amount funded into newly created accounts
	CallTimeout       time.Duration
	TxTimeout         time.Duration // Validity window of submitted transactions
}

// SettlementConfig controls the deposit settlement worker
type SettlementConfig struct {
	MaxFailedAttempts int
}

// TrustlineConfig controls the trustline reconciliation poller
type TrustlineConfig struct {
	Schedule  string // cron expression, e.g. "@every 60s"
	BatchSize int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of concurrent settlements
}

// validate performs validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}
	if c.Metrics.Port <= 0 {
		validationErrors = append(validationErrors, "METRICS_PORT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.SettlementTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_SETTLEMENT_TOPIC is required")
	}
	if c.Kafka.PaymentTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYMENT_TOPIC is required")
	}
	if c.Kafka.SettlementGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_SETTLEMENT_GROUP is required")
	}
	if c.Kafka.PaymentGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYMENT_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.DedupTTL <= 0 {
		validationErrors = append(validationErrors, "REDIS_DEDUP_TTL must be greater than 0")
	}

	// Validate Ledger config
	if c.Ledger.HorizonURL == "" {
		validationErrors = append(validationErrors, "LEDGER_HORIZON_URL is required")
	}
	if c.Ledger.NetworkPassphrase == "" {
		validationErrors = append(validationErrors, "LEDGER_NETWORK_PASSPHRASE is required")
	}
	if c.Ledger.StartingBalance == "" {
		validationErrors = append(validationErrors, "LEDGER_STARTING_BALANCE is required")
	}
	if c.Ledger.CallTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_CALL_TIMEOUT must be greater than 0")
	}
	if c.Ledger.TxTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_TX_TIMEOUT must be greater than 0")
	}

	// Validate settlement workers
	if c.Settlement.MaxFailedAttempts <= 0 {
		validationErrors = append(validationErrors, "SETTLEMENT_MAX_FAILED_ATTEMPTS must be greater than 0")
	}
	if c.Trustline.Schedule == "" {
		validationErrors = append(validationErrors, "TRUSTLINE_SCHEDULE is required")
	}
	if c.Trustline.BatchSize <= 0 {
		validationErrors = append(validationErrors, "TRUSTLINE_BATCH_SIZE must be greater than 0")
	}
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}

// IsDevelopment reports whether the process runs in a local development environment
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Application.Env, "development")
}
