package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string `env:"APP_NAME" envDefault:"catalog"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	Auth        AuthConfig
	Buffer      BufferConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
	Maintenance MaintenanceConfig
}

type HTTPConfig struct {
	Host         string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port         string        `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	MaxConn      int           `env:"SERVER_MAX_CONN" envDefault:"0"`
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	Name            string        `env:"DB_NAME" envDefault:"catalog"`
	User            string        `env:"DB_USER" envDefault:"catalog"`
	Password        string        `env:"DB_PASSWORD"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxConnLifetime time.Duration `env:"DB_CONN_LIFETIME" envDefault:"1h"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`

	// Pool tuning. StatementTimeout is sent as a session parameter.
	ConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"30s"`
	StatementTimeout  time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"5s"`
	ApplicationName   string        `env:"DB_APPLICATION_NAME" envDefault:"catalog"`
}

type RedisConfig struct {
	URL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	Password  string        `env:"REDIS_PASSWORD"`
	DB        int           `env:"REDIS_DB" envDefault:"0"`
	OpTimeout time.Duration `env:"REDIS_OP_TIMEOUT" envDefault:"250ms"`
}

// SessionConfig holds the namespace lifetimes. Cookie attributes other than
// the domain are fixed.
type SessionConfig struct {
	GuestTTL     time.Duration `env:"SESSION_GUEST_TTL" envDefault:"30m"`
	AuthTTL      time.Duration `env:"SESSION_AUTH_TTL" envDefault:"60m"`
	CookieDomain string        `env:"SESSION_COOKIE_DOMAIN"`
}

type AuthConfig struct {
	FailureThreshold int           `env:"AUTH_FAILURE_THRESHOLD" envDefault:"3"`
	FailureWindow    time.Duration `env:"AUTH_FAILURE_WINDOW" envDefault:"10m"`
	LockoutDuration  time.Duration `env:"AUTH_LOCKOUT_DURATION" envDefault:"15m"`
	PasswordPepper   string        `env:"AUTH_PASSWORD_PEPPER"`
	Argon2Time       uint32        `env:"AUTH_ARGON2_TIME" envDefault:"3"`
	Argon2MemoryKiB  uint32        `env:"AUTH_ARGON2_MEMORY_KIB" envDefault:"65536"`
	Argon2Threads    uint8         `env:"AUTH_ARGON2_THREADS" envDefault:"2"`
}

type BufferConfig struct {
	Path         string        `env:"BOLTDB_PATH" envDefault:"./data/buffer.db"`
	MaxSize      int           `env:"BUFFER_MAX_SIZE" envDefault:"100000"`
	SyncInterval time.Duration `env:"BUFFER_SYNC_INTERVAL" envDefault:"30s"`
	MaxRetry     int           `env:"BUFFER_MAX_RETRY" envDefault:"3"`
	MaxAge       time.Duration `env:"BUFFER_MAX_AGE" envDefault:"24h"`
}

type ContextConfig struct {
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type LoggerConfig struct {
	Level    string `env:"LOG_LEVEL" envDefault:"info"`
	Encoding string `env:"LOG_ENCODING" envDefault:"json"`
}

type MigrationsConfig struct {
	Enabled bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	Path    string `env:"MIGRATIONS_PATH" envDefault:"./assets/migrations"`
}

// MaintenanceConfig schedules the purge of soft-deleted client accounts.
type MaintenanceConfig struct {
	PurgeSchedule  string `env:"PURGE_SCHEDULE" envDefault:"@daily"`
	RetentionDays  int    `env:"PURGE_RETENTION_DAYS" envDefault:"30"`
	DisablePurging bool   `env:"PURGE_DISABLED" envDefault:"false"`
}

// Load reads configuration from environment variables (optionally .env),
// applies defaults and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.GuestTTL <= 0 {
		errs = append(errs, errors.New("SESSION_GUEST_TTL must be positive"))
	}
	if c.Session.AuthTTL <= 0 {
		errs = append(errs, errors.New("SESSION_AUTH_TTL must be positive"))
	}
	if c.Redis.OpTimeout <= 0 {
		errs = append(errs, errors.New("REDIS_OP_TIMEOUT must be positive"))
	}
	if c.Auth.FailureThreshold < 1 {
		errs = append(errs, errors.New("AUTH_FAILURE_THRESHOLD must be at least 1"))
	}
	if c.Auth.FailureWindow <= 0 || c.Auth.LockoutDuration <= 0 {
		errs = append(errs, errors.New("AUTH_FAILURE_WINDOW and AUTH_LOCKOUT_DURATION must be positive"))
	}
	if c.Auth.Argon2Time == 0 || c.Auth.Argon2MemoryKiB == 0 || c.Auth.Argon2Threads == 0 {
		errs = append(errs, errors.New("argon2 parameters must be non-zero"))
	}
	if c.IsProduction() && c.Auth.PasswordPepper == "" {
		errs = append(errs, errors.New("AUTH_PASSWORD_PEPPER is required in production"))
	}
	if c.Maintenance.RetentionDays < 1 {
		errs = append(errs, errors.New("PURGE_RETENTION_DAYS must be at least 1"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production hardening.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
