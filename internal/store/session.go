package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/leadportal/internal/database"
	"github.com/dukerupert/leadportal/internal/model"
)

// SessionStore keeps server-side session records in the sessions table.
type SessionStore struct {
	db      *sqlx.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewSessionStore(db *sqlx.DB) *SessionStore {
	return &SessionStore{db: db, dialect: database.DialectOf(db), now: time.Now}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var sess model.Session
	var data []byte
	if err := scanner.Scan(&sess.ID, &data, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &sess.Data); err != nil {
			return nil, fmt.Errorf("decode session data: %w", err)
		}
	}
	return &sess, nil
}

const sessionCols = `id, data, expires_at, created_at`

// Get returns nil for unknown or expired sessions.
func (s *SessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(
		`SELECT `+sessionCols+` FROM sessions WHERE id = ? AND expires_at > ?`),
		id, s.dialect.TimeArg(s.now()))
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Save inserts or replaces the session record.
func (s *SessionStore) Save(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess.Data)
	if err != nil {
		return fmt.Errorf("encode session data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO sessions (id, data, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`),
		sess.ID, string(data), s.dialect.TimeArg(sess.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns how many went.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), s.dialect.TimeArg(s.now()))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
