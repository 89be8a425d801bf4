package database

import (
	"embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Config selects the relational store. DSN wins over the discrete
// Postgres fields; Path is only used for SQLite.
type Config struct {
	Driver   string
	Path     string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ConnString returns the driver-specific data source name.
func (c Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	if ParseDialect(c.Driver) == Postgres {
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, sslMode)
	}
	path := c.Path
	if path == "" {
		path = "leadportal.db"
	}
	return sqlitePragmas(path)
}

func sqlitePragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open connects to the configured store and runs migrations.
func Open(cfg Config) (*sqlx.DB, error) {
	dialect := ParseDialect(cfg.Driver)
	dsn := cfg.ConnString()

	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every connection to an in-memory SQLite database is a fresh database.
	if dialect == SQLite && strings.HasPrefix(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// OpenSQLite opens a SQLite database at path. Tests use ":memory:".
func OpenSQLite(path string) (*sqlx.DB, error) {
	return Open(Config{Driver: string(SQLite), Path: path})
}

// Migrate applies the embedded goose migrations for the connection's dialect.
func Migrate(db *sqlx.DB) error {
	dialect := DialectOf(db)
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(dialect.GooseDialect()); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations/"+string(dialect)); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}
