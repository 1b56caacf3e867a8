package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/co2-estimator/pkg/logger"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every setting the binaries read. Nothing else should read the
// environment directly.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=co2_estimator"`
	AppDebug            bool   `env:"APP_DEBUG,default=true"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`

	HttpListenAddr     string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpBaseRequestUrl string        `env:"HTTP_BASE_REQUEST_URI,default=/api/v1"`
	HttpRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=30s"`
	HttpReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT,default=5s"`
	HttpWriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT,default=35s"`
	HttpIdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT,default=10s"`
	HttpBufferSize     int           `env:"HTTP_BUFFER_SIZE,default=16384"`
	HttpMaxBodySize    int           `env:"HTTP_MAX_BODY_SIZE,default=4194304"`

	// DBDriver is postgres or sqlite. SQLitePath is only read for sqlite.
	DBDriver   string `env:"DB_DRIVER,default=postgres"`
	SQLitePath string `env:"SQLITE_PATH,default=co2.db"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=co2:"`

	PromNamespace string `env:"PROM_NAMESPACE,default=co2_estimator"`

	QueueName              string        `env:"QUEUE_NAME,default=sync-events"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=sync-processors"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=5"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=5m"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=1s"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=10"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`

	ProcessorConsumers         int           `env:"PROCESSOR_CONSUMERS,default=1"`
	ProcessorWorkers           int           `env:"PROCESSOR_WORKERS,default=4"`
	ProcessorProcessingTimeout time.Duration `env:"PROCESSOR_PROCESSING_TIMEOUT,default=2m"`
	ProcessorLagWarning        int64         `env:"PROCESSOR_LAG_WARNING,default=1000"`

	BridgeApiUrl          string        `env:"BRIDGE_API_URL,default=https://api.bridgeapi.io"`
	BridgeApiVersion      string        `env:"BRIDGE_API_VERSION,default=2021-06-01"`
	BridgeClientID        string        `env:"BRIDGE_CLIENT_ID"`
	BridgeClientSecret    string        `env:"BRIDGE_CLIENT_SECRET"`
	BridgeTimeout         time.Duration `env:"BRIDGE_TIMEOUT,default=10s"`
	BridgeMaxConns        int           `env:"BRIDGE_MAX_CONNS,default=64"`
	BridgePageLimit       int           `env:"BRIDGE_PAGE_LIMIT,default=500"`
	BridgeBreakerFailures int           `env:"BRIDGE_BREAKER_FAILURES,default=5"`
	BridgeBreakerTimeout  time.Duration `env:"BRIDGE_BREAKER_TIMEOUT,default=30s"`
	BridgeBreakerInterval time.Duration `env:"BRIDGE_BREAKER_INTERVAL,default=1m"`

	SyncWatermarkMargin time.Duration `env:"SYNC_WATERMARK_MARGIN,default=1h"`
	SyncLockTTL         time.Duration `env:"SYNC_LOCK_TTL,default=5m"`
	SyncMaxRetries      int           `env:"SYNC_MAX_RETRIES,default=3"`

	CategoryCacheTTL time.Duration `env:"CATEGORY_CACHE_TTL,default=24h"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		logger.Info("loading env file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to configuration")
	}
	if err := c.Validate(); err != nil {
		return err
	}

	config = c
	return nil
}

// Validate rejects settings the binaries cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return errors.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.SyncWatermarkMargin < 0 {
		return errors.New("SYNC_WATERMARK_MARGIN must not be negative")
	}
	if c.ProcessorWorkers <= 0 {
		return errors.New("PROCESSOR_WORKERS must be positive")
	}
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// Set installs c as the process configuration. Intended for tests and tools
// that build their configuration in code.
func Set(c *Config) {
	config = c
}
