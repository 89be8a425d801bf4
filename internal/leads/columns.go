package leads

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Table is the lead table every query targets.
const Table = "relocation_leads"

// Optional columns the queries depend on.
const (
	ColID         = "id"
	ColCreatedAt  = "created_at"
	ColCityTo     = "city_to"
	ColType       = "type"
	ColAdminNotes = "admin_notes"
	ColExtra      = "extra"
)

// IntakeColumns are the lead form fields written directly when present.
var IntakeColumns = []string{"name", "email", "phone", "city_from", "city_to", "type"}

// Columns is the set of column names the live lead table has.
type Columns map[string]struct{}

func NewColumns(names ...string) Columns {
	c := make(Columns, len(names))
	for _, n := range names {
		c[n] = struct{}{}
	}
	return c
}

func (c Columns) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Names returns the column names sorted.
func (c Columns) Names() []string {
	out := make([]string, 0, len(c))
	for n := range c {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Introspector reads the live column set of the lead table.
type Introspector interface {
	LeadColumns(ctx context.Context) (Columns, error)
}

// SchemaCache wraps an Introspector. With a zero TTL every call goes to the
// database; otherwise the set is reused until it ages out or Invalidate is called.
type SchemaCache struct {
	src Introspector
	ttl time.Duration
	now func() time.Time

	mu        sync.RWMutex
	cols      Columns
	fetchedAt time.Time
}

func NewSchemaCache(src Introspector, ttl time.Duration) *SchemaCache {
	return &SchemaCache{src: src, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *SchemaCache) WithClock(now func() time.Time) *SchemaCache {
	s.now = now
	return s
}

func (s *SchemaCache) LeadColumns(ctx context.Context) (Columns, error) {
	if s.ttl <= 0 {
		return s.src.LeadColumns(ctx)
	}

	s.mu.RLock()
	if s.cols != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		cols := s.cols
		s.mu.RUnlock()
		return cols, nil
	}
	s.mu.RUnlock()

	cols, err := s.src.LeadColumns(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cols = cols
	s.fetchedAt = s.now()
	s.mu.Unlock()

	return cols, nil
}

// Invalidate drops the cached column set.
func (s *SchemaCache) Invalidate() {
	s.mu.Lock()
	s.cols = nil
	s.mu.Unlock()
}
