package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/leadportal/internal/model"
)

type SubmissionStore struct {
	db *sqlx.DB
}

func NewSubmissionStore(db *sqlx.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func scanSubmission(scanner interface{ Scan(...any) error }) (*model.Submission, error) {
	var sub model.Submission
	var payload []byte
	if err := scanner.Scan(&sub.ID, &sub.Kind, &sub.Email, &payload, &sub.CreatedAt); err != nil {
		return nil, err
	}
	sub.Payload = string(payload)
	return &sub, nil
}

const submissionCols = `id, kind, email, payload, created_at`

// Create records a form submission with its fields as a JSON payload.
func (s *SubmissionStore) Create(ctx context.Context, kind, email string, fields map[string]string) (*model.Submission, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var id int64
	err = s.db.QueryRowxContext(ctx, s.db.Rebind(
		`INSERT INTO submissions (kind, email, payload) VALUES (?, ?, ?) RETURNING id`),
		kind, email, string(payload),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *SubmissionStore) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT `+submissionCols+` FROM submissions WHERE id = ?`), id)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListByKind returns the newest submissions of one kind.
func (s *SubmissionStore) ListByKind(ctx context.Context, kind string, limit int) ([]model.Submission, error) {
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(
		`SELECT `+submissionCols+` FROM submissions WHERE kind = ? ORDER BY id DESC LIMIT ?`), kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}
