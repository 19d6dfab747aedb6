package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinKDFIterations is the floor for PBKDF2 iterations; lower configured values
// are rejected by Validate.
const MinKDFIterations = 100_000

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Crypto    CryptoConfig    `mapstructure:"crypto"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// CryptoConfig configures the card-data envelope encryption.
type CryptoConfig struct {
	Secret     string `mapstructure:"secret"`     // empty = random per process (data unreadable after restart)
	Iterations int    `mapstructure:"iterations"` // PBKDF2 iterations, >= MinKDFIterations
}

type AuditConfig struct {
	Driver     string `mapstructure:"driver"` // sqlite, postgres, memory
	SQLitePath string `mapstructure:"sqlite_path"`
	PageSize   int    `mapstructure:"page_size"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

// GatewayConfig tunes the simulated card processor.
type GatewayConfig struct {
	FailureRate float64       `mapstructure:"failure_rate"`
	Latency     time.Duration `mapstructure:"latency"`
	Currency    string        `mapstructure:"currency"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int64         `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PPAY_.
// Nested keys use underscore: PPAY_DATABASE_HOST, PPAY_CRYPTO_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "patient_portal")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "patient-portal")
	v.SetDefault("crypto.secret", "")
	v.SetDefault("crypto.iterations", MinKDFIterations)
	v.SetDefault("audit.driver", "sqlite")
	v.SetDefault("audit.sqlite_path", "./data/payment_audit.db")
	v.SetDefault("audit.page_size", 200)
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("gateway.failure_rate", 0.1)
	v.SetDefault("gateway.latency", "1s")
	v.SetDefault("gateway.currency", "USD")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.limit", 60)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: PPAY_DATABASE_HOST -> database.host
	v.SetEnvPrefix("PPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required; env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings that would weaken the crypto or point at an
// unknown backend.
func (c *Config) Validate() error {
	if c.Crypto.Iterations < MinKDFIterations {
		return fmt.Errorf("crypto.iterations must be at least %d, got %d", MinKDFIterations, c.Crypto.Iterations)
	}
	switch c.Audit.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unknown audit.driver %q", c.Audit.Driver)
	}
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Gateway.FailureRate < 0 || c.Gateway.FailureRate > 1 {
		return fmt.Errorf("gateway.failure_rate must be within [0,1], got %v", c.Gateway.FailureRate)
	}
	if c.Audit.PageSize <= 0 {
		return fmt.Errorf("audit.page_size must be positive")
	}
	return nil
}

// NeedsPostgres reports whether any configured backend requires a pool.
func (c *Config) NeedsPostgres() bool {
	return c.Storage.Driver == "postgres" || c.Audit.Driver == "postgres"
}
