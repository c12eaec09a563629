package internal

import (
	"fasolink-chat/errors"
	"fmt"
	"time"
)

const (
	StoreBadger   = "badger"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	BrokerMemory = "memory"
	BrokerRedis  = "redis"
	BrokerNats   = "nats"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8000"`
	GRPCPort int    `env:"GRPC_PORT,default=50051"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	StoreBackend   string `env:"STORE_BACKEND,default=badger"`
	BadgerFilepath string `env:"BADGER_FILEPATH"`
	DatabaseURL    string `env:"DATABASE_URL"`

	BrokerBackend string `env:"BROKER_BACKEND,default=memory"`
	RedisAddr     string `env:"REDIS_ADDR"`
	NatsURL       string `env:"NATS_URL"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	JWTIssuer         string        `env:"JWT_ISSUER,default=fasolink"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=5s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=1m"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=5000"`
}

// Validate catches combinations the env tags cannot express.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreBadger:
	case StoreSQLite, StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE_BACKEND=%s", c.StoreBackend)
		}
	default:
		return fmt.Errorf("%w: STORE_BACKEND=%q", errors.ErrUnknownBackend, c.StoreBackend)
	}

	switch c.BrokerBackend {
	case BrokerMemory:
	case BrokerRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for BROKER_BACKEND=redis")
		}
	case BrokerNats:
		if c.NatsURL == "" {
			return fmt.Errorf("NATS_URL is required for BROKER_BACKEND=nats")
		}
	default:
		return fmt.Errorf("%w: BROKER_BACKEND=%q", errors.ErrUnknownBackend, c.BrokerBackend)
	}

	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT must be positive, got %s", c.WriteTimeout)
	}
	if c.MetricInterval <= 0 {
		return fmt.Errorf("METRIC_INTERVAL must be positive, got %s", c.MetricInterval)
	}
	return nil
}
