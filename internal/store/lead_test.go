package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/leadportal/internal/leads"
)

var testNow = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func setupLeadStore(t *testing.T) (*LeadStore, *SchemaStore) {
	t.Helper()
	db := setupTestDB(t)
	return NewLeadStore(db).WithClock(func() time.Time { return testNow }), NewSchemaStore(db)
}

func TestLeadColumns(t *testing.T) {
	_, schema := setupLeadStore(t)

	cols, err := schema.LeadColumns(context.Background())
	if err != nil {
		t.Fatalf("lead columns: %v", err)
	}
	for _, c := range []string{"id", "created_at", "city_to", "type", "admin_notes", "extra"} {
		if !cols.Has(c) {
			t.Errorf("missing column %q in %v", c, cols.Names())
		}
	}
}

func TestLeadListAndStats(t *testing.T) {
	ls, schema := setupLeadStore(t)
	ctx := context.Background()

	insertLead(t, ls.db, testNow.Add(-1*time.Hour), "Austin", "family", "a@example.com")
	insertLead(t, ls.db, testNow.Add(-3*24*time.Hour), "Austin", "business", "b@example.com")
	insertLead(t, ls.db, testNow.Add(-20*24*time.Hour), "Boise", "individual", "c@example.com")
	insertLead(t, ls.db, testNow.Add(-90*24*time.Hour), "", "individual", "d@example.com")

	cols, _ := schema.LeadColumns(ctx)

	rows, err := ls.List(ctx, cols)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("len = %d, want 4", len(rows))
	}
	if rows[0].String("email") != "a@example.com" {
		t.Errorf("first row email = %q, want newest lead", rows[0].String("email"))
	}
	if rows[0].ID() == 0 {
		t.Error("expected row id")
	}

	stats, err := ls.Stats(ctx, cols)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Today != 1 || stats.Last7Days != 2 || stats.Last30Days != 3 || stats.AllTime != 4 {
		t.Errorf("stats = %+v", stats)
	}

	top, err := ls.TopDestinations(ctx, cols)
	if err != nil {
		t.Fatalf("top destinations: %v", err)
	}
	if len(top) != 2 || top[0].Destination != "Austin" || top[0].Count != 2 {
		t.Errorf("top = %+v", top)
	}
}

func TestLeadExportFilters(t *testing.T) {
	ls, schema := setupLeadStore(t)
	ctx := context.Background()

	insertLead(t, ls.db, testNow.Add(-2*24*time.Hour), "TX", "business", "a@example.com")
	insertLead(t, ls.db, testNow.Add(-2*24*time.Hour), "TX", "family", "b@example.com")
	insertLead(t, ls.db, testNow.Add(-40*24*time.Hour), "TX", "business", "c@example.com")
	insertLead(t, ls.db, testNow.Add(-2*24*time.Hour), "ID", "business", "d@example.com")

	cols, _ := schema.LeadColumns(ctx)

	rows, err := ls.Export(ctx, cols, leads.Filter{Days: 30, Destination: "TX", Type: "business"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 1 || rows[0].String("email") != "a@example.com" {
		t.Errorf("rows = %+v", rows)
	}

	rows, err = ls.Export(ctx, cols, leads.Filter{})
	if err != nil {
		t.Fatalf("export all: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("len = %d, want 4", len(rows))
	}
}

// Rebuilding relocation_leads without optional columns simulates an older schema.
func stripLeadTable(t *testing.T, ls *LeadStore) {
	t.Helper()
	for _, stmt := range []string{
		`DROP TABLE lead_shares`,
		`DROP TABLE relocation_leads`,
		`CREATE TABLE relocation_leads (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT)`,
		`INSERT INTO relocation_leads (email) VALUES ('old@example.com'), ('new@example.com')`,
	} {
		if _, err := ls.db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
}

func TestLeadQueriesToleratesMissingColumns(t *testing.T) {
	ls, schema := setupLeadStore(t)
	ctx := context.Background()
	stripLeadTable(t, ls)

	cols, err := schema.LeadColumns(ctx)
	if err != nil {
		t.Fatalf("lead columns: %v", err)
	}
	if cols.Has("created_at") {
		t.Fatal("expected stripped schema")
	}

	rows, err := ls.Export(ctx, cols, leads.Filter{Days: 7, Destination: "TX", Type: "family"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].String("email") != "new@example.com" {
		t.Errorf("expected id DESC order, got %q first", rows[0].String("email"))
	}

	stats, err := ls.Stats(ctx, cols)
	if err != nil || stats != nil {
		t.Errorf("stats = %+v, %v; want nil, nil", stats, err)
	}
	top, err := ls.TopDestinations(ctx, cols)
	if err != nil || top != nil {
		t.Errorf("top = %+v, %v; want nil, nil", top, err)
	}

	_, err = ls.UpdateNotes(ctx, cols, rows[0].ID(), "hi")
	if !errors.Is(err, leads.ErrNoNotesColumn) {
		t.Errorf("err = %v, want ErrNoNotesColumn", err)
	}

	id, err := ls.Create(ctx, cols, map[string]string{"email": "x@example.com", "city_to": "Reno"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Error("expected id")
	}
}

func TestLeadUpdateNotes(t *testing.T) {
	ls, schema := setupLeadStore(t)
	ctx := context.Background()
	id := insertLead(t, ls.db, testNow, "TX", "family", "a@example.com")
	cols, _ := schema.LeadColumns(ctx)

	found, err := ls.UpdateNotes(ctx, cols, id, "called, left voicemail")
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if !found {
		t.Error("expected lead to be found")
	}

	found, err = ls.UpdateNotes(ctx, cols, id+100, "nope")
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if found {
		t.Error("expected missing lead")
	}

	rows, _ := ls.List(ctx, cols)
	if got := rows[0].String("admin_notes"); got != "called, left voicemail" {
		t.Errorf("admin_notes = %q", got)
	}
}

func TestLeadCreateExtra(t *testing.T) {
	ls, schema := setupLeadStore(t)
	ctx := context.Background()
	cols, _ := schema.LeadColumns(ctx)

	id, err := ls.Create(ctx, cols, map[string]string{
		"name":     "Dana",
		"email":    "dana@example.com",
		"city_to":  "Boise",
		"type":     "family",
		"timeline": "3 months",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	exists, err := ls.Exists(ctx, id)
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v", exists, err)
	}

	rows, _ := ls.List(ctx, cols)
	if got := rows[0].String("extra"); got != `{"timeline":"3 months"}` {
		t.Errorf("extra = %q", got)
	}
	if rows[0].Get("created_at") == nil {
		t.Error("expected created_at default")
	}
}
