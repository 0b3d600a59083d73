package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig      `envPrefix:"APP_"`
	HTTP     HTTPConfig
	Postgres PostgresConfig `envPrefix:"DB_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name           string        `env:"NAME" envDefault:"meditrack-staff"`
	Env            string        `env:"ENV" envDefault:"development"`
	Host           string        `env:"HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"PORT" envDefault:"5000"`
	Version        string        `env:"VERSION" envDefault:"dev"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// HTTPConfig holds cross-origin settings for browser clients.
type HTTPConfig struct {
	CORSOrigins []string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000,http://localhost:8000" envSeparator:","`
}

// PostgresConfig holds DB connection and pool values.
type PostgresConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"meditrack_db"`
	SSLMode  string `env:"SSLMODE" envDefault:"require"`
	// DSN overrides the discrete connection fields when set.
	DSN string `env:"DSN"`

	MaxConns       int32         `env:"POOL_MAX" envDefault:"10"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"30s"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	AcquireTimeout time.Duration `env:"ACQUIRE_TIMEOUT" envDefault:"10s"`
	RunMigrations  bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	// Format is "json" or "console". Empty picks by APP_ENV.
	Format string `env:"LOG_FORMAT"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"your-secret-key"`
	TokenTTL         time.Duration `env:"JWT_EXPIRE" envDefault:"24h"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"10"`
	HashConcurrency  int           `env:"HASH_CONCURRENCY" envDefault:"0"`
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"0"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
}

// Load reads an optional .env file, then parses configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			return nil, fmt.Errorf("failed to parse config: %w", aggErr.Errors[0])
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Postgres.MaxConns <= 0 {
		return fmt.Errorf("DB_POOL_MAX must be positive, got %d", c.Postgres.MaxConns)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_EXPIRE must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// ConnString builds a libpq-style URL from the discrete fields unless DSN is set.
func (p PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   "/" + p.Name,
	}
	q := url.Values{}
	if p.SSLMode != "" {
		q.Set("sslmode", p.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
