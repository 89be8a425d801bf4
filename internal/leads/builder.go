package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/leadportal/internal/database"
)

const (
	ListLimit         = 200
	ExportLimit       = 5000
	PartnerLimit      = 200
	TopDestinations   = 10
	partnerSharedCols = "id,created_at,city_to,type,admin_notes"
)

// ErrNoNotesColumn is returned when the lead table cannot store admin notes.
var ErrNoNotesColumn = errors.New("table missing admin_notes column")

// Query is a statement with ? placeholders and its arguments, ready for
// sqlx.Rebind.
type Query struct {
	SQL  string
	Args []any
}

// Builder assembles lead statements against a known column set. It never
// names a column that isn't in Cols.
type Builder struct {
	Cols    Columns
	Dialect database.Dialect
	Now     time.Time
}

func NewBuilder(cols Columns, dialect database.Dialect, now time.Time) Builder {
	return Builder{Cols: cols, Dialect: dialect, Now: now}
}

func (b Builder) orderColumn() string {
	if b.Cols.Has(ColCreatedAt) {
		return ColCreatedAt
	}
	return ColID
}

// OrderBy is the newest-first sort clause, optionally qualified with a table alias.
func (b Builder) OrderBy(alias string) string {
	col := b.orderColumn()
	if alias != "" {
		col = alias + "." + col
	}
	return " ORDER BY " + col + " DESC"
}

// List selects the newest rows for the dashboard, unfiltered.
func (b Builder) List() Query {
	return Query{
		SQL:  "SELECT * FROM " + Table + b.OrderBy("") + " LIMIT ?",
		Args: []any{ListLimit},
	}
}

// Where renders the filter predicates that apply to this schema.
func (b Builder) Where(f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Days > 0 && b.Cols.Has(ColCreatedAt) {
		cutoff := b.Now.Add(-time.Duration(f.Days) * 24 * time.Hour)
		clauses = append(clauses, ColCreatedAt+" >= ?")
		args = append(args, b.Dialect.TimeArg(cutoff))
	}
	if f.Destination != "" && b.Cols.Has(ColCityTo) {
		clauses = append(clauses, ColCityTo+" = ?")
		args = append(args, f.Destination)
	}
	if f.Type != "" && b.Cols.Has(ColType) {
		clauses = append(clauses, ColType+" = ?")
		args = append(args, f.Type)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Export selects filtered rows for CSV download.
func (b Builder) Export(f Filter) Query {
	where, args := b.Where(f)
	return Query{
		SQL:  "SELECT * FROM " + Table + where + b.OrderBy("") + " LIMIT ?",
		Args: append(args, ExportLimit),
	}
}

// Stats counts rows created today (UTC), in the last 7 and 30 days, and in
// total. ok is false when the table has no created_at column.
func (b Builder) Stats() (q Query, ok bool) {
	if !b.Cols.Has(ColCreatedAt) {
		return Query{}, false
	}
	now := b.Now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	week := now.Add(-7 * 24 * time.Hour)
	month := now.Add(-30 * 24 * time.Hour)

	sql := `SELECT
	COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS today,
	COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS last_7_days,
	COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS last_30_days,
	COUNT(*) AS all_time
FROM ` + Table

	return Query{
		SQL:  sql,
		Args: []any{b.Dialect.TimeArg(today), b.Dialect.TimeArg(week), b.Dialect.TimeArg(month)},
	}, true
}

// Destinations ranks city_to values by frequency. ok is false without that column.
func (b Builder) Destinations() (q Query, ok bool) {
	if !b.Cols.Has(ColCityTo) {
		return Query{}, false
	}
	sql := `SELECT city_to AS destination, COUNT(*) AS cnt
FROM ` + Table + `
WHERE city_to IS NOT NULL AND city_to <> ''
GROUP BY city_to
ORDER BY cnt DESC, city_to ASC
LIMIT ?`
	return Query{SQL: sql, Args: []any{TopDestinations}}, true
}

// PartnerColumns is the redacted projection a partner may see, in display order.
func (b Builder) PartnerColumns() []string {
	var cols []string
	for _, c := range strings.Split(partnerSharedCols, ",") {
		if b.Cols.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// PartnerLeads selects the redacted rows shared with one partner.
func (b Builder) PartnerLeads(partnerID int64) Query {
	cols := b.PartnerColumns()
	if len(cols) == 0 {
		cols = []string{ColID}
	}
	sel := make([]string, len(cols))
	for i, c := range cols {
		sel[i] = "rl." + c
	}
	sql := "SELECT " + strings.Join(sel, ", ") + `
FROM lead_shares ls
JOIN ` + Table + ` rl ON rl.id = ls.lead_id
WHERE ls.partner_id = ?` + b.OrderBy("rl") + " LIMIT ?"

	return Query{SQL: sql, Args: []any{partnerID, PartnerLimit}}
}

// UpdateNotes sets admin_notes on one lead.
func (b Builder) UpdateNotes(id int64, notes string) (Query, error) {
	if !b.Cols.Has(ColAdminNotes) {
		return Query{}, ErrNoNotesColumn
	}
	return Query{
		SQL:  "UPDATE " + Table + " SET admin_notes = ? WHERE id = ?",
		Args: []any{notes, id},
	}, nil
}

// Insert writes a lead from form fields. Fields with a matching intake column
// are stored directly; the rest go into extra as JSON when that column exists.
// Empty values are skipped.
func (b Builder) Insert(fields map[string]string) (Query, error) {
	intake := make(map[string]bool, len(IntakeColumns))
	for _, c := range IntakeColumns {
		intake[c] = true
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		cols  []string
		args  []any
		extra = map[string]string{}
	)
	for _, k := range keys {
		v := strings.TrimSpace(fields[k])
		if v == "" {
			continue
		}
		if intake[k] && b.Cols.Has(k) {
			cols = append(cols, k)
			args = append(args, v)
			continue
		}
		extra[k] = v
	}

	if len(extra) > 0 && b.Cols.Has(ColExtra) {
		raw, err := json.Marshal(extra)
		if err != nil {
			return Query{}, fmt.Errorf("marshal extra: %w", err)
		}
		cols = append(cols, ColExtra)
		args = append(args, string(raw))
	}

	if len(cols) == 0 {
		return Query{SQL: "INSERT INTO " + Table + " DEFAULT VALUES RETURNING id"}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return Query{
		SQL:  "INSERT INTO " + Table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders + ") RETURNING id",
		Args: args,
	}, nil
}
