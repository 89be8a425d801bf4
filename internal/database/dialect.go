package database

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Dialect names the SQL flavour behind a connection. Queries are written
// with ? placeholders and rebound by sqlx; the dialect covers the rest.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ParseDialect maps a DB_DRIVER value to a dialect. Unknown values fall back to SQLite.
func ParseDialect(driver string) Dialect {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx", "pg":
		return Postgres
	default:
		return SQLite
	}
}

// DialectOf inspects the driver name a sqlx handle was opened with.
func DialectOf(db *sqlx.DB) Dialect {
	if db.DriverName() == "pgx" {
		return Postgres
	}
	return SQLite
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) GooseDialect() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

// TimeArg encodes t for comparison against timestamp columns. SQLite stores
// timestamps as text, so the value must match CURRENT_TIMESTAMP's layout for
// string comparison to order correctly.
func (d Dialect) TimeArg(t time.Time) any {
	if d == Postgres {
		return t.UTC()
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// ColumnsQuery lists the column names of one table, bound to a single ? argument.
func (d Dialect) ColumnsQuery() string {
	if d == Postgres {
		return `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position`
	}
	return `SELECT name FROM pragma_table_info(?) ORDER BY cid`
}
