// Package config loads and validates the settings shared by the reconciliation API,
// the reconciliation worker and the reconctl command.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config is the complete configuration of one reconciliation binary
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Matching    MatchingConfig
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // must cover a full synchronous reconciliation run
	IdleTimeout     time.Duration
	AllowedOrigins  []string
}

type KafkaConfig struct {
	Brokers           string
	RequestTopic      string // reconciliation requests scheduled through the API
	MatchEventTopic   string // MATCH_CREATED / MATCH_REMOVED events relayed from the outbox
	DLQTopic          string
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
}

type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig points at the reconciliation log store
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig backs the distributed period lock
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	LockTTL  time.Duration
}

type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

type WorkerPoolConfig struct {
	Size int
}

// MatchingConfig holds the tunable scoring weights and run parameters
type MatchingConfig struct {
	AmountWeight     float64
	ReferenceWeight  float64
	DateWeight       float64
	DateWindowMonths int
	MinFuzzyScore    float64
	BatchSize        int
}

// validate checks every section and reports all violations together
func (c *Config) validate() error {
	var validationErrors []string
	require := func(ok bool, msg string) {
		if !ok {
			validationErrors = append(validationErrors, msg)
		}
	}

	require(c.Server.Port > 0, "SERVER_PORT must be greater than 0")
	require(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	require(c.Server.ReadTimeout > 0, "SERVER_READ_TIMEOUT must be greater than 0")
	require(c.Server.WriteTimeout > 0, "SERVER_WRITE_TIMEOUT must be greater than 0")
	require(c.Server.IdleTimeout > 0, "SERVER_IDLE_TIMEOUT must be greater than 0")

	require(c.Kafka.Brokers != "", "KAFKA_BROKERS is required")
	require(c.Kafka.RequestTopic != "", "KAFKA_REQUEST_TOPIC is required")
	require(c.Kafka.MatchEventTopic != "", "KAFKA_MATCH_EVENT_TOPIC is required")
	require(c.Kafka.DLQTopic != "", "KAFKA_DLQ_TOPIC is required")
	require(c.Kafka.ConsumerGroup != "", "KAFKA_CONSUMER_GROUP is required")
	require(c.Kafka.MinBytes > 0, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	require(c.Kafka.MaxBytes > 0, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	require(c.Kafka.MaxWait > 0, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")

	require(c.Postgres.URL != "", "POSTGRES_URL is required")
	require(c.Postgres.MaxConns > 0, "POSTGRES_MAX_CONNS must be greater than 0")
	require(c.Postgres.MinConns > 0, "POSTGRES_MIN_CONNS must be greater than 0")
	require(c.Postgres.ConnMaxLifetime > 0, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	require(c.Postgres.ConnMaxIdleTime > 0, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")

	require(c.MongoDB.URI != "", "MONGO_URI is required")
	require(c.MongoDB.Database != "", "MONGO_DATABASE is required")
	require(c.MongoDB.Timeout > 0, "MONGO_TIMEOUT must be greater than 0")
	require(c.MongoDB.MaxPoolSize > 0, "MONGO_MAX_POOL_SIZE must be greater than 0")
	require(c.MongoDB.MinPoolSize > 0, "MONGO_MIN_POOL_SIZE must be greater than 0")
	require(c.MongoDB.MaxConnIdleTime > 0, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")

	require(c.Redis.Address != "", "REDIS_ADDRESS is required")
	require(c.Redis.DB >= 0, "REDIS_DB cannot be negative")
	require(c.Redis.LockTTL > 0, "REDIS_LOCK_TTL must be greater than 0")

	require(c.Outbox.PollingInterval > 0, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	require(c.Outbox.BatchSize > 0, "OUTBOX_BATCH_SIZE must be greater than 0")
	require(c.Outbox.MaxRetryAttempts > 0, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")

	require(c.WorkerPool.Size > 0, "WORKER_POOL_SIZE must be greater than 0")

	m := c.Matching
	require(m.AmountWeight >= 0 && m.AmountWeight <= 1, "MATCHING_AMOUNT_WEIGHT must be between 0 and 1")
	require(m.ReferenceWeight >= 0 && m.ReferenceWeight <= 1, "MATCHING_REFERENCE_WEIGHT must be between 0 and 1")
	require(m.DateWeight >= 0 && m.DateWeight <= 1, "MATCHING_DATE_WEIGHT must be between 0 and 1")
	require(m.AmountWeight+m.ReferenceWeight+m.DateWeight > 0, "at least one MATCHING_*_WEIGHT must be greater than 0")
	require(m.DateWindowMonths >= 0, "MATCHING_DATE_WINDOW_MONTHS cannot be negative")
	require(m.MinFuzzyScore >= 0 && m.MinFuzzyScore <= 1, "MATCHING_MIN_FUZZY_SCORE must be between 0 and 1")
	require(m.BatchSize > 0, "MATCHING_BATCH_SIZE must be greater than 0")

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}
	return nil
}
