package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/leadportal/internal/database"
	"github.com/dukerupert/leadportal/internal/leads"
	"github.com/dukerupert/leadportal/internal/model"
)

// LeadStore runs the lead queries. Every method takes the column set the
// caller resolved for this request so statements match the live table.
type LeadStore struct {
	db      *sqlx.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewLeadStore(db *sqlx.DB) *LeadStore {
	return &LeadStore{db: db, dialect: database.DialectOf(db), now: time.Now}
}

// WithClock replaces the time source used for date cutoffs.
func (s *LeadStore) WithClock(now func() time.Time) *LeadStore {
	s.now = now
	return s
}

func (s *LeadStore) builder(cols leads.Columns) leads.Builder {
	return leads.NewBuilder(cols, s.dialect, s.now())
}

func scanRows(rows *sqlx.Rows) ([]model.Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []model.Row{}
	for rows.Next() {
		values := make(map[string]any, len(columns))
		if err := rows.MapScan(values); err != nil {
			return nil, err
		}
		for k, v := range values {
			if b, ok := v.([]byte); ok {
				values[k] = string(b)
			}
		}
		out = append(out, model.Row{Columns: columns, Values: values})
	}
	return out, rows.Err()
}

func (s *LeadStore) query(ctx context.Context, q leads.Query) ([]model.Row, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(q.SQL), q.Args...)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

// List returns the newest leads for the dashboard.
func (s *LeadStore) List(ctx context.Context, cols leads.Columns) ([]model.Row, error) {
	rows, err := s.query(ctx, s.builder(cols).List())
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return rows, nil
}

// Export returns filtered leads for CSV download.
func (s *LeadStore) Export(ctx context.Context, cols leads.Columns, f leads.Filter) ([]model.Row, error) {
	rows, err := s.query(ctx, s.builder(cols).Export(f))
	if err != nil {
		return nil, fmt.Errorf("export leads: %w", err)
	}
	return rows, nil
}

// Stats returns nil when the table has no created_at column.
func (s *LeadStore) Stats(ctx context.Context, cols leads.Columns) (*model.LeadStats, error) {
	q, ok := s.builder(cols).Stats()
	if !ok {
		return nil, nil
	}
	var stats model.LeadStats
	if err := s.db.GetContext(ctx, &stats, s.db.Rebind(q.SQL), q.Args...); err != nil {
		return nil, fmt.Errorf("lead stats: %w", err)
	}
	return &stats, nil
}

// TopDestinations returns nil when the table has no city_to column.
func (s *LeadStore) TopDestinations(ctx context.Context, cols leads.Columns) ([]model.DestinationCount, error) {
	q, ok := s.builder(cols).Destinations()
	if !ok {
		return nil, nil
	}
	var out []model.DestinationCount
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q.SQL), q.Args...); err != nil {
		return nil, fmt.Errorf("top destinations: %w", err)
	}
	return out, nil
}

// ListForPartner returns the redacted leads shared with one partner.
func (s *LeadStore) ListForPartner(ctx context.Context, cols leads.Columns, partnerID int64) ([]model.Row, error) {
	rows, err := s.query(ctx, s.builder(cols).PartnerLeads(partnerID))
	if err != nil {
		return nil, fmt.Errorf("list partner leads: %w", err)
	}
	return rows, nil
}

// UpdateNotes reports false when no lead has the id. It returns
// leads.ErrNoNotesColumn unwrapped when the table can't hold notes.
func (s *LeadStore) UpdateNotes(ctx context.Context, cols leads.Columns, id int64, notes string) (bool, error) {
	q, err := s.builder(cols).UpdateNotes(id, notes)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q.SQL), q.Args...)
	if err != nil {
		return false, fmt.Errorf("update lead notes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Create inserts a lead from form fields and returns its id.
func (s *LeadStore) Create(ctx context.Context, cols leads.Columns, fields map[string]string) (int64, error) {
	q, err := s.builder(cols).Insert(fields)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(q.SQL), q.Args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert lead: %w", err)
	}
	return id, nil
}

func (s *LeadStore) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT 1 FROM relocation_leads WHERE id = ?`), id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check lead: %w", err)
	}
	return true, nil
}
