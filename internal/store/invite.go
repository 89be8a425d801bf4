package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/leadportal/internal/database"
	"github.com/dukerupert/leadportal/internal/model"
)

type InviteStore struct {
	db      *sqlx.DB
	dialect database.Dialect
}

func NewInviteStore(db *sqlx.DB) *InviteStore {
	return &InviteStore{db: db, dialect: database.DialectOf(db)}
}

func scanInvite(scanner interface{ Scan(...any) error }) (*model.PartnerInvite, error) {
	var inv model.PartnerInvite
	var usedAt sql.NullTime
	err := scanner.Scan(&inv.ID, &inv.Token, &inv.Email, &inv.ExpiresAt, &usedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if usedAt.Valid {
		inv.UsedAt = &usedAt.Time
	}
	return &inv, nil
}

const inviteCols = `id, token, email, expires_at, used_at, created_at`

// GenerateToken returns 32 random bytes, hex-encoded.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create stores a new invite for email that expires at expiresAt.
func (s *InviteStore) Create(ctx context.Context, email string, expiresAt time.Time) (*model.PartnerInvite, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.db.QueryRowxContext(ctx, s.db.Rebind(
		`INSERT INTO partner_invites (token, email, expires_at) VALUES (?, ?, ?) RETURNING id`),
		token, email, s.dialect.TimeArg(expiresAt),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert invite: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *InviteStore) GetByID(ctx context.Context, id int64) (*model.PartnerInvite, error) {
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT `+inviteCols+` FROM partner_invites WHERE id = ?`), id)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return inv, nil
}

// GetByToken matches the token exactly.
func (s *InviteStore) GetByToken(ctx context.Context, token string) (*model.PartnerInvite, error) {
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT `+inviteCols+` FROM partner_invites WHERE token = ?`), token)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite by token: %w", err)
	}
	return inv, nil
}

// ListRecent returns the newest invites first.
func (s *InviteStore) ListRecent(ctx context.Context, limit int) ([]model.PartnerInvite, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(
		`SELECT `+inviteCols+` FROM partner_invites ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var out []model.PartnerInvite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// Redeem marks the invite used and creates the partner in one transaction.
// The mark only succeeds while the invite is unused and unexpired at now;
// otherwise ErrInviteUnavailable is returned and nothing is written. A taken
// partner email rolls the mark back and returns an error wrapping ErrDuplicate.
func (s *InviteStore) Redeem(ctx context.Context, inviteID int64, now time.Time, np NewPartner) (*model.Partner, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ts := s.dialect.TimeArg(now)
	res, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE partner_invites SET used_at = ?
		 WHERE id = ? AND used_at IS NULL AND expires_at > ?`),
		ts, inviteID, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("mark invite used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrInviteUnavailable
	}

	p, err := insertPartner(ctx, tx, np)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return nil, ErrInviteUnavailable
		}
		return nil, fmt.Errorf("commit redeem: %w", err)
	}
	return p, nil
}

// DeleteExpired removes unused invites past their expiry.
func (s *InviteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM partner_invites WHERE used_at IS NULL AND expires_at <= ?`), s.dialect.TimeArg(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired invites: %w", err)
	}
	return res.RowsAffected()
}
