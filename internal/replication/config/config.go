package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v6"
)

// LockTTLMargin is the minimum slack between the record timeout and the
// distributed lock TTL.
const LockTTLMargin = 5 * time.Second

// Admin modes
const (
	AdminModeMongo = "mongo"
	AdminModeHTTP  = "http"
)

// MongoConfig locates the document store
type MongoConfig struct {
	URI                string `env:"MONGODB_URI,required"`
	DatabaseName       string `env:"MONGODB_DATABASE" envDefault:"replication"`
	MetadataCollection string `env:"METADATA_COLLECTION" envDefault:"replication_metadata"`
}

// AdminConfig configures the collection administration surface. In http mode
// every Mongo collection is mirrored by a cluster bucket that carries its quota.
// Credentials here are operator credentials, distinct from document access.
type AdminConfig struct {
	Mode           string        `env:"ADMIN_MODE" envDefault:"mongo"`
	BaseURL        string        `env:"ADMIN_BASE_URL" envDefault:"http://localhost:8091"`
	Username       string        `env:"ADMIN_USERNAME"`
	Password       string        `env:"ADMIN_PASSWORD"`
	RequestTimeout time.Duration `env:"ADMIN_REQUEST_TIMEOUT" envDefault:"30s"`
}

// LifecycleConfig controls collection creation
type LifecycleConfig struct {
	CollectionQuotaMB int           `env:"COLLECTION_QUOTA_MB" envDefault:"100"`
	ReadinessAttempts int           `env:"READINESS_ATTEMPTS" envDefault:"5"`
	ReadinessDelay    time.Duration `env:"READINESS_DELAY" envDefault:"1s"`
}

// WriteConfig controls the record write path
type WriteConfig struct {
	GateStripes     int           `env:"WRITE_GATE_STRIPES" envDefault:"256"`
	MaxInFlight     int64         `env:"WRITE_MAX_IN_FLIGHT" envDefault:"64"`
	RecordTimeout   time.Duration `env:"WRITE_RECORD_TIMEOUT" envDefault:"30s"`
	DistributedLock bool          `env:"WRITE_DISTRIBUTED_LOCK" envDefault:"false"`
	LockTTL         time.Duration `env:"WRITE_LOCK_TTL" envDefault:"45s"`
	LockRetry       time.Duration `env:"WRITE_LOCK_RETRY" envDefault:"25ms"`
}

// RedisConfig holds the Redis connection used by the distributed record lock
type RedisConfig struct {
	Host            string `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool   `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime string `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`
}

// GetAddr returns host:port
func (r *RedisConfig) GetAddr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// AuthConfig protects the host-facing API with bearer tokens. An empty secret disables it.
type AuthConfig struct {
	JWTSecretKey string        `env:"JWT_SECRET_KEY"`
	JWTIssuer    string        `env:"JWT_ISSUER" envDefault:"replication-agent"`
	TokenTTL     time.Duration `env:"JWT_TOKEN_TTL" envDefault:"1h"`
}

// Enabled reports whether bearer authentication is required
func (a AuthConfig) Enabled() bool {
	return a.JWTSecretKey != ""
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Port string `env:"SERVER_PORT" envDefault:"3000"`
}

// Config holds all configuration for the replication connector.
type Config struct {
	Mongo     MongoConfig
	Admin     AdminConfig
	Lifecycle LifecycleConfig
	Write     WriteConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Server    ServerConfig
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config with default values for local development and tests.
func DefaultConfig() *Config {
	return &Config{
		Mongo: MongoConfig{
			URI:                "mongodb://localhost:27017",
			DatabaseName:       "replication",
			MetadataCollection: "replication_metadata",
		},
		Admin: AdminConfig{
			Mode:           AdminModeMongo,
			BaseURL:        "http://localhost:8091",
			RequestTimeout: 30 * time.Second,
		},
		Lifecycle: LifecycleConfig{
			CollectionQuotaMB: 100,
			ReadinessAttempts: 5,
			ReadinessDelay:    time.Second,
		},
		Write: WriteConfig{
			GateStripes:   256,
			MaxInFlight:   64,
			RecordTimeout: 30 * time.Second,
			LockTTL:       45 * time.Second,
			LockRetry:     25 * time.Millisecond,
		},
		Redis: RedisConfig{
			Host:            "localhost",
			Port:            "6379",
			MaxRetries:      3,
			PoolSize:        10,
			MinIdleConns:    2,
			ConnMaxIdleTime: "30m",
			ConnMaxLifetime: "1h",
		},
		Auth: AuthConfig{
			JWTIssuer: "replication-agent",
			TokenTTL:  time.Hour,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: "3000",
		},
	}
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("MONGODB_URI environment variable is not set")
	}
	if c.Mongo.MetadataCollection == "" {
		return errors.New("metadata collection name cannot be empty")
	}
	switch c.Admin.Mode {
	case AdminModeMongo:
	case AdminModeHTTP:
		if c.Admin.BaseURL == "" {
			return errors.New("ADMIN_BASE_URL is required when ADMIN_MODE=http")
		}
		if c.Admin.Username == "" || c.Admin.Password == "" {
			return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required when ADMIN_MODE=http")
		}
	default:
		return fmt.Errorf("unknown ADMIN_MODE %q", c.Admin.Mode)
	}
	if c.Lifecycle.ReadinessAttempts < 1 {
		return errors.New("READINESS_ATTEMPTS must be at least 1")
	}
	if c.Lifecycle.ReadinessDelay < 0 {
		return errors.New("READINESS_DELAY cannot be negative")
	}
	if c.Write.GateStripes < 1 {
		return errors.New("WRITE_GATE_STRIPES must be at least 1")
	}
	if c.Write.MaxInFlight < 1 {
		return errors.New("WRITE_MAX_IN_FLIGHT must be at least 1")
	}
	if c.Write.DistributedLock {
		// the lock is never extended, so it must outlive the slowest record write
		if c.Write.RecordTimeout <= 0 {
			return errors.New("WRITE_RECORD_TIMEOUT must be positive when the distributed lock is enabled")
		}
		if c.Write.LockTTL < c.Write.RecordTimeout+LockTTLMargin {
			return fmt.Errorf("WRITE_LOCK_TTL (%s) must exceed WRITE_RECORD_TIMEOUT (%s) by at least %s",
				c.Write.LockTTL, c.Write.RecordTimeout, LockTTLMargin)
		}
	}
	return nil
}
