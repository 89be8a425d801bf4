package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/leadportal/internal/model"
)

type PartnerStore struct {
	db *sqlx.DB
}

func NewPartnerStore(db *sqlx.DB) *PartnerStore {
	return &PartnerStore{db: db}
}

func scanPartner(scanner interface{ Scan(...any) error }) (*model.Partner, error) {
	var p model.Partner
	var contact sql.NullString
	err := scanner.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.CompanyName, &contact, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if contact.Valid {
		p.ContactName = &contact.String
	}
	return &p, nil
}

const partnerCols = `id, email, password_hash, company_name, contact_name, status, created_at`

// NewPartner is the input for creating a partner account.
type NewPartner struct {
	Email        string
	PasswordHash string
	CompanyName  string
	ContactName  string
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	Rebind(string) string
}

func insertPartner(ctx context.Context, q queryer, np NewPartner) (*model.Partner, error) {
	var id int64
	err := q.QueryRowxContext(ctx, q.Rebind(
		`INSERT INTO partners (email, password_hash, company_name, contact_name, status)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`),
		np.Email, np.PasswordHash, np.CompanyName, nullable(np.ContactName), model.PartnerStatusActive,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert partner: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert partner: %w", err)
	}

	row := q.QueryRowxContext(ctx, q.Rebind(`SELECT `+partnerCols+` FROM partners WHERE id = ?`), id)
	p, err := scanPartner(row)
	if err != nil {
		return nil, fmt.Errorf("get partner: %w", err)
	}
	return p, nil
}

// Create adds an active partner. A taken email returns an error wrapping ErrDuplicate.
func (s *PartnerStore) Create(ctx context.Context, np NewPartner) (*model.Partner, error) {
	return insertPartner(ctx, s.db, np)
}

func (s *PartnerStore) GetByID(ctx context.Context, id int64) (*model.Partner, error) {
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT `+partnerCols+` FROM partners WHERE id = ?`), id)
	p, err := scanPartner(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get partner: %w", err)
	}
	return p, nil
}

// GetByEmail expects an already normalized email.
func (s *PartnerStore) GetByEmail(ctx context.Context, email string) (*model.Partner, error) {
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT `+partnerCols+` FROM partners WHERE email = ?`), email)
	p, err := scanPartner(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get partner by email: %w", err)
	}
	return p, nil
}

func (s *PartnerStore) List(ctx context.Context) ([]model.Partner, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT `+partnerCols+` FROM partners ORDER BY company_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()

	var out []model.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PartnerStore) SetStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE partners SET status = ? WHERE id = ?`), status, id)
	if err != nil {
		return fmt.Errorf("set partner status: %w", err)
	}
	return nil
}
