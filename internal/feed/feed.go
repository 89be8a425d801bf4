package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/leadportal/internal/metrics"
)

const (
	DefaultURL       = "https://calmatters.org/feed/"
	DefaultTTL       = 5 * time.Minute
	DefaultBackoff   = 30 * time.Second
	DefaultUserAgent = "EscapeCalifornia-MVP/1.0 (+https://escapecalifornia.com)"
	defaultSource    = "CalMatters"
	dateLayout       = "Jan 2, 2006"
	flightKey        = "feed"
)

// Item is one headline for the landing page.
type Item struct {
	Title       string
	URL         string
	Source      string
	PublishedAt string
}

// Config holds news feed settings.
type Config struct {
	URL       string
	TTL       time.Duration
	Timeout   time.Duration
	Backoff   time.Duration // how long a failed fetch is remembered
	UserAgent string
	Source    string
}

// Service fetches an RSS feed and caches the parsed items.
type Service struct {
	config Config
	client *http.Client
	now    func() time.Time
	logger *slog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	fetched   bool
	failed    bool
	cached    []Item
	lastFetch time.Time
}

type Option func(*Service)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(cfg Config, opts ...Option) *Service {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Source == "" {
		cfg.Source = defaultSource
	}
	s := &Service{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Items returns the cached headlines, fetching when the cache is stale.
// Concurrent callers share one fetch, and a caller whose context ends stops
// waiting. A failure yields an empty list that is kept for Backoff.
func (s *Service) Items(ctx context.Context) []Item {
	if items, ok := s.fresh(); ok {
		return items
	}

	ch := s.group.DoChan(flightKey, func() (any, error) {
		// Shared by every waiter, so it must outlive the caller that started it.
		return s.load(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		return res.Val.([]Item)
	case <-ctx.Done():
		return []Item{}
	}
}

func (s *Service) fresh() ([]Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.fetched {
		return nil, false
	}
	ttl := s.config.TTL
	if s.failed {
		ttl = s.config.Backoff
	}
	if s.now().Sub(s.lastFetch) >= ttl {
		return nil, false
	}
	return s.cached, true
}

// load fetches without holding mu and stores the outcome.
func (s *Service) load(ctx context.Context) []Item {
	items, err := s.fetch(ctx)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues("error").Inc()
		s.logger.Error("news feed fetch failed", "url", s.config.URL, "error", err)
		items = []Item{}
	} else {
		metrics.FeedFetchesTotal.WithLabelValues("ok").Inc()
	}

	s.mu.Lock()
	s.fetched = true
	s.failed = err != nil
	s.cached = items
	s.lastFetch = s.now()
	s.mu.Unlock()
	return items
}

// Invalidate forces the next Items call to fetch.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.fetched = false
	s.failed = false
	s.cached = nil
	s.lastFetch = time.Time{}
	s.mu.Unlock()
	s.group.Forget(flightKey)
}

// Refresh invalidates the cache and fetches immediately.
func (s *Service) Refresh(ctx context.Context) []Item {
	s.Invalidate()
	return s.Items(ctx)
}

func (s *Service) fetch(ctx context.Context) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = s.client
	fp.UserAgent = s.config.UserAgent

	parsed, err := fp.ParseURLWithContext(s.config.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return s.toItems(parsed), nil
}

func (s *Service) toItems(f *gofeed.Feed) []Item {
	items := make([]Item, 0, len(f.Items))
	for _, it := range f.Items {
		item := Item{
			Title:  strings.TrimSpace(it.Title),
			URL:    strings.TrimSpace(it.Link),
			Source: s.config.Source,
		}
		if item.Title == "" {
			item.Title = "Untitled"
		}
		if it.PublishedParsed != nil {
			item.PublishedAt = it.PublishedParsed.Format(dateLayout)
		}
		items = append(items, item)
	}
	return items
}
