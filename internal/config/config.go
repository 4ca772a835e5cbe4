package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates all runtime settings.
type Config struct {
	App      AppConfig      `envPrefix:"AUTH_"`
	HTTP     HTTPConfig     `envPrefix:"AUTH_HTTP_"`
	Database DatabaseConfig `envPrefix:"AUTH_DB_"`
	Redis    RedisConfig    `envPrefix:"AUTH_REDIS_"`
	Token    TokenConfig    `envPrefix:"AUTH_TOKEN_"`
	Security SecurityConfig `envPrefix:"AUTH_SECURITY_"`
}

type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"admin-auth-service"`
}

type HTTPConfig struct {
	Host              string        `env:"HOST" envDefault:"0.0.0.0"`
	Port              int           `env:"PORT" envDefault:"4201"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"25s"`
}

type DatabaseConfig struct {
	URL             string        `env:"URL"`
	MaxConns        int32         `env:"MAX_CONNS" envDefault:"20"`
	MinConns        int32         `env:"MIN_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	RunMigrations   bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
}

type RedisConfig struct {
	Addr      string `env:"ADDR" envDefault:"127.0.0.1:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	EnableTLS bool   `env:"ENABLE_TLS" envDefault:"false"`
	Namespace string `env:"NAMESPACE" envDefault:"adminauth"`
}

type TokenConfig struct {
	Issuer            string        `env:"ISSUER" envDefault:"https://auth.vpnpanel.local"`
	AccessSigningKey  string        `env:"ACCESS_KEY"`
	RefreshSigningKey string        `env:"REFRESH_KEY"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
}

type SecurityConfig struct {
	HashCost         int           `env:"HASH_COST" envDefault:"12"`
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutWindow    time.Duration `env:"LOCKOUT_WINDOW" envDefault:"30m"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	AuditQueueSize   int           `env:"AUDIT_QUEUE_SIZE" envDefault:"256"`
	LoginRateLimit   int           `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
	RefreshRateLimit int           `env:"REFRESH_RATE_LIMIT" envDefault:"30"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load parses environment variables into Config and performs validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("AUTH_DB_URL is required")
	}
	if cfg.Token.AccessSigningKey == "" || cfg.Token.RefreshSigningKey == "" {
		return nil, fmt.Errorf("AUTH_TOKEN_ACCESS_KEY and AUTH_TOKEN_REFRESH_KEY are required")
	}
	if cfg.Token.AccessSigningKey == cfg.Token.RefreshSigningKey {
		return nil, fmt.Errorf("access and refresh signing keys must differ")
	}
	if cfg.Security.LockoutThreshold < 1 {
		return nil, fmt.Errorf("AUTH_SECURITY_LOCKOUT_THRESHOLD must be positive")
	}

	return cfg, nil
}
