package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dukerupert/leadportal/internal/database"
	"github.com/dukerupert/leadportal/internal/leads"
)

// SchemaStore reads the live shape of the lead table.
type SchemaStore struct {
	db      *sqlx.DB
	dialect database.Dialect
}

func NewSchemaStore(db *sqlx.DB) *SchemaStore {
	return &SchemaStore{db: db, dialect: database.DialectOf(db)}
}

func (s *SchemaStore) LeadColumns(ctx context.Context) (leads.Columns, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names, s.db.Rebind(s.dialect.ColumnsQuery()), leads.Table)
	if err != nil {
		return nil, fmt.Errorf("introspect lead columns: %w", err)
	}
	return leads.NewColumns(names...), nil
}
