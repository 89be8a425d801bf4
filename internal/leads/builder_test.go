package leads

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/leadportal/internal/database"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func fullColumns() Columns {
	return NewColumns("id", "created_at", "name", "email", "phone", "city_from", "city_to", "type", "admin_notes", "extra")
}

func TestExportAllFilters(t *testing.T) {
	b := NewBuilder(fullColumns(), database.SQLite, fixedNow)
	q := b.Export(Filter{Days: 30, Destination: "TX", Type: "business"})

	assert.Equal(t,
		"SELECT * FROM relocation_leads WHERE created_at >= ? AND city_to = ? AND type = ? ORDER BY created_at DESC LIMIT ?",
		q.SQL)
	require.Len(t, q.Args, 4)
	assert.Equal(t, "2026-02-12 15:09:26", q.Args[0])
	assert.Equal(t, "TX", q.Args[1])
	assert.Equal(t, "business", q.Args[2])
	assert.Equal(t, ExportLimit, q.Args[3])
}

func TestExportOmitsMissingColumns(t *testing.T) {
	f := Filter{Days: 7, Destination: "TX", Type: "family"}

	tests := []struct {
		name    string
		cols    Columns
		absent  []string
		present []string
		order   string
	}{
		{
			name:   "only id",
			cols:   NewColumns("id"),
			absent: []string{"created_at", "city_to", "type ="},
			order:  "ORDER BY id DESC",
		},
		{
			name:    "no created_at",
			cols:    NewColumns("id", "city_to", "type"),
			absent:  []string{"created_at"},
			present: []string{"city_to = ?", "type = ?"},
			order:   "ORDER BY id DESC",
		},
		{
			name:    "no city_to",
			cols:    NewColumns("id", "created_at", "type"),
			absent:  []string{"city_to"},
			present: []string{"created_at >= ?", "type = ?"},
			order:   "ORDER BY created_at DESC",
		},
		{
			name:    "no type",
			cols:    NewColumns("id", "created_at", "city_to"),
			absent:  []string{"type ="},
			present: []string{"created_at >= ?", "city_to = ?"},
			order:   "ORDER BY created_at DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewBuilder(tt.cols, database.SQLite, fixedNow).Export(f)
			for _, s := range tt.absent {
				assert.NotContains(t, q.SQL, s)
			}
			for _, s := range tt.present {
				assert.Contains(t, q.SQL, s)
			}
			assert.Contains(t, q.SQL, tt.order)
			assert.Equal(t, strings.Count(q.SQL, "?"), len(q.Args))
		})
	}
}

func TestListOrder(t *testing.T) {
	q := NewBuilder(NewColumns("id"), database.SQLite, fixedNow).List()
	assert.Equal(t, "SELECT * FROM relocation_leads ORDER BY id DESC LIMIT ?", q.SQL)
	assert.Equal(t, []any{ListLimit}, q.Args)
}

func TestPostgresTimeArg(t *testing.T) {
	q := NewBuilder(fullColumns(), database.Postgres, fixedNow).Export(Filter{Days: 1})
	require.NotEmpty(t, q.Args)
	ts, ok := q.Args[0].(time.Time)
	require.True(t, ok, "arg is %T", q.Args[0])
	assert.True(t, ts.Equal(fixedNow.Add(-24*time.Hour)))
}

func TestStats(t *testing.T) {
	_, ok := NewBuilder(NewColumns("id"), database.SQLite, fixedNow).Stats()
	assert.False(t, ok)

	q, ok := NewBuilder(fullColumns(), database.SQLite, fixedNow).Stats()
	require.True(t, ok)
	assert.Equal(t, []any{"2026-03-14 00:00:00", "2026-03-07 15:09:26", "2026-02-12 15:09:26"}, q.Args)
}

func TestDestinations(t *testing.T) {
	_, ok := NewBuilder(NewColumns("id", "created_at"), database.SQLite, fixedNow).Destinations()
	assert.False(t, ok)

	q, ok := NewBuilder(fullColumns(), database.SQLite, fixedNow).Destinations()
	require.True(t, ok)
	assert.Contains(t, q.SQL, "GROUP BY city_to")
	assert.Equal(t, []any{TopDestinations}, q.Args)
}

func TestPartnerLeadsRedacted(t *testing.T) {
	q := NewBuilder(fullColumns(), database.SQLite, fixedNow).PartnerLeads(7)
	assert.True(t, strings.HasPrefix(q.SQL, "SELECT rl.id, rl.created_at, rl.city_to, rl.type, rl.admin_notes\n"))
	assert.NotContains(t, q.SQL, "email")
	assert.NotContains(t, q.SQL, "phone")
	assert.Contains(t, q.SQL, "ORDER BY rl.created_at DESC")
	assert.Equal(t, []any{int64(7), PartnerLimit}, q.Args)

	q = NewBuilder(NewColumns("id", "type"), database.SQLite, fixedNow).PartnerLeads(7)
	assert.True(t, strings.HasPrefix(q.SQL, "SELECT rl.id, rl.type\n"))
	assert.Contains(t, q.SQL, "ORDER BY rl.id DESC")
}

func TestUpdateNotes(t *testing.T) {
	_, err := NewBuilder(NewColumns("id"), database.SQLite, fixedNow).UpdateNotes(1, "x")
	assert.True(t, errors.Is(err, ErrNoNotesColumn))

	q, err := NewBuilder(fullColumns(), database.SQLite, fixedNow).UpdateNotes(3, "call back")
	require.NoError(t, err)
	assert.Equal(t, []any{"call back", int64(3)}, q.Args)
}

func TestInsert(t *testing.T) {
	fields := map[string]string{
		"name":    "Dana",
		"email":   "dana@example.com",
		"city_to": "Boise",
		"budget":  "50k",
		"phone":   "  ",
	}

	q, err := NewBuilder(fullColumns(), database.SQLite, fixedNow).Insert(fields)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO relocation_leads (city_to, email, name, extra) VALUES (?, ?, ?, ?) RETURNING id", q.SQL)
	require.Len(t, q.Args, 4)

	var extra map[string]string
	require.NoError(t, json.Unmarshal([]byte(q.Args[3].(string)), &extra))
	assert.Equal(t, map[string]string{"budget": "50k"}, extra)
}

func TestInsertWithoutExtraColumn(t *testing.T) {
	q, err := NewBuilder(NewColumns("id", "email"), database.SQLite, fixedNow).Insert(map[string]string{
		"email":   "a@b.c",
		"city_to": "Reno",
	})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO relocation_leads (email) VALUES (?) RETURNING id", q.SQL)

	q, err = NewBuilder(NewColumns("id"), database.SQLite, fixedNow).Insert(map[string]string{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO relocation_leads DEFAULT VALUES RETURNING id", q.SQL)
}
