package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type ShareStore struct {
	db *sqlx.DB
}

func NewShareStore(db *sqlx.DB) *ShareStore {
	return &ShareStore{db: db}
}

// Share grants a partner access to a lead. It reports whether a new share was
// created; sharing twice is not an error.
func (s *ShareStore) Share(ctx context.Context, partnerID, leadID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO lead_shares (partner_id, lead_id) VALUES (?, ?)
		 ON CONFLICT (partner_id, lead_id) DO NOTHING`),
		partnerID, leadID,
	)
	if err != nil {
		return false, fmt.Errorf("share lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *ShareStore) Unshare(ctx context.Context, partnerID, leadID int64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM lead_shares WHERE partner_id = ? AND lead_id = ?`), partnerID, leadID)
	if err != nil {
		return fmt.Errorf("unshare lead: %w", err)
	}
	return nil
}

// LeadIDs lists the leads shared with a partner.
func (s *ShareStore) LeadIDs(ctx context.Context, partnerID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(
		`SELECT lead_id FROM lead_shares WHERE partner_id = ? ORDER BY lead_id`), partnerID)
	if err != nil {
		return nil, fmt.Errorf("list shared leads: %w", err)
	}
	return ids, nil
}
