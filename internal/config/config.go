package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dukerupert/leadportal/internal/database"
)

const (
	minSecretLen = 16
	// bcrypt input limit
	maxPasswordBytes = 72
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:3000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"text"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	AdminPassword     string `env:"ADMIN_PASSWORD"`

	SessionSecret  string        `env:"SESSION_SECRET"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SessionBackend string        `env:"SESSION_BACKEND" envDefault:"sql"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
	CSRFSecret     string        `env:"CSRF_SECRET"`

	InviteExpiryDays int           `env:"INVITE_EXPIRY_DAYS" envDefault:"14"`
	LeadSchemaTTL    time.Duration `env:"LEAD_SCHEMA_TTL" envDefault:"0s"`
	// METRICS_ENABLED puts /metrics on the public listener; METRICS_ADDR
	// serves it on a separate, usually private, address instead.
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"false"`
	MetricsAddr    string `env:"METRICS_ADDR"`

	DB    DBConfig
	SMTP  SMTPConfig
	Redis RedisConfig
	Feed  FeedConfig
}

type DBConfig struct {
	Driver   string `env:"DB_DRIVER" envDefault:"sqlite"`
	Path     string `env:"DB_PATH" envDefault:"leadportal.db"`
	DSN      string `env:"DB_DSN"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"leadportal"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

type SMTPConfig struct {
	Host     string        `env:"SMTP_HOST"`
	Port     int           `env:"SMTP_PORT" envDefault:"587"`
	Username string        `env:"SMTP_USERNAME"`
	Password string        `env:"SMTP_PASSWORD"`
	From     string        `env:"SMTP_FROM" envDefault:"no-reply@localhost"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type FeedConfig struct {
	URL     string        `env:"FEED_URL" envDefault:"https://calmatters.org/feed/"`
	TTL     time.Duration `env:"FEED_TTL" envDefault:"5m"`
	Timeout time.Duration `env:"FEED_TIMEOUT" envDefault:"5s"`
	Backoff time.Duration `env:"FEED_ERROR_BACKOFF" envDefault:"30s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

// FromMap builds a Config from an explicit environment, ignoring the process one.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &cfg, nil
}

// Validate checks the settings that serve needs but the other commands don't.
func (c *Config) Validate() error {
	var errs []error
	if len(c.SessionSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSecretLen))
	}
	if len(c.CSRFSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("CSRF_SECRET must be at least %d bytes", minSecretLen))
	}
	switch c.SessionBackend {
	case "sql", "redis":
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be sql or redis, got %q", c.SessionBackend))
	}
	if c.AdminPasswordHash == "" && len(c.AdminPassword) > maxPasswordBytes {
		errs = append(errs, fmt.Errorf("ADMIN_PASSWORD must be at most %d bytes", maxPasswordBytes))
	}
	if c.InviteExpiryDays <= 0 {
		errs = append(errs, errors.New("INVITE_EXPIRY_DAYS must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Database() database.Config {
	return database.Config{
		Driver:   c.DB.Driver,
		Path:     c.DB.Path,
		DSN:      c.DB.DSN,
		Host:     c.DB.Host,
		Port:     c.DB.Port,
		User:     c.DB.User,
		Password: c.DB.Password,
		Name:     c.DB.Name,
		SSLMode:  c.DB.SSLMode,
	}
}

func (c *Config) InviteExpiry() time.Duration {
	return time.Duration(c.InviteExpiryDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
