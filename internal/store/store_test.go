package store

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/leadportal/internal/database"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// insertLead writes a lead row with an explicit creation time.
func insertLead(t *testing.T, db *sqlx.DB, createdAt time.Time, cityTo, typ, email string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(
		`INSERT INTO relocation_leads (created_at, city_to, type, email) VALUES (?, ?, ?, ?) RETURNING id`,
		database.SQLite.TimeArg(createdAt), cityTo, typ, email,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert lead: %v", err)
	}
	return id
}
