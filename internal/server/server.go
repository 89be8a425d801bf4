package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/leadportal/internal/auth"
	"github.com/dukerupert/leadportal/internal/csrf"
	"github.com/dukerupert/leadportal/internal/handler"
	"github.com/dukerupert/leadportal/internal/leads"
	"github.com/dukerupert/leadportal/internal/middleware"
	"github.com/dukerupert/leadportal/internal/partner"
	"github.com/dukerupert/leadportal/internal/session"
	"github.com/dukerupert/leadportal/internal/store"
	"github.com/dukerupert/leadportal/web"
)

const (
	formLimit  = 10
	formWindow = time.Minute
)

// Config carries the settings the router needs.
type Config struct {
	SessionSecret  string
	SessionTTL     time.Duration
	CookieSecure   bool
	CSRFSecret     string
	RequestTimeout time.Duration
	SchemaTTL      time.Duration
	Metrics        bool
}

// Deps are the collaborators built by the caller.
type Deps struct {
	DB       *sqlx.DB
	Sessions session.Store
	Partners *partner.Service
	News     handler.NewsSource
	Admin    *auth.AdminCredential
	Logger   *slog.Logger
}

type Server struct {
	cfg         Config
	db          *sqlx.DB
	sessions    *session.Manager
	protector   *csrf.Protector
	publicH     *handler.PublicHandler
	partnerH    *handler.PartnerHandler
	adminH      *handler.AdminHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(cfg Config, d Deps) (*Server, error) {
	logger := d.Logger

	rd, err := handler.NewRenderer(web.Templates(), logger.With("component", "render"))
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	sm := session.NewManager(d.Sessions, cfg.SessionSecret,
		session.WithTTL(cfg.SessionTTL),
		session.WithSecureCookie(cfg.CookieSecure),
		session.WithLogger(logger.With("component", "session")),
	)
	protector := csrf.New(cfg.CSRFSecret, func(r *http.Request) string {
		return session.ID(r.Context())
	}, logger.With("component", "csrf"))

	leadStore := store.NewLeadStore(d.DB)
	schema := leads.NewSchemaCache(store.NewSchemaStore(d.DB), cfg.SchemaTTL)

	return &Server{
		cfg:         cfg,
		db:          d.DB,
		sessions:    sm,
		protector:   protector,
		publicH:     handler.NewPublicHandler(leadStore, schema, d.Partners, d.News, rd, logger.With("component", "public")),
		partnerH:    handler.NewPartnerHandler(d.Partners, leadStore, schema, sm, rd, logger.With("component", "partner")),
		adminH:      handler.NewAdminHandler(d.Admin, leadStore, schema, d.Partners, sm, rd, logger.With("component", "admin")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}, nil
}

// MetricsHandler serves Prometheus metrics on its own listener.
func MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Router builds the handler tree. Static files, health and metrics skip
// sessions; everything else gets a session and passes the CSRF gate first.
func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	outerMux.HandleFunc("GET /health", handler.Health(s.db))
	if s.cfg.Metrics {
		outerMux.Handle("GET /metrics", promhttp.Handler())
	}

	appMux := http.NewServeMux()
	s.registerRoutes(appMux)
	outerMux.Handle("/", s.sessions.Middleware(s.protector.Middleware(appMux)))

	var h http.Handler = outerMux
	h = middleware.Timeout(s.cfg.RequestTimeout)(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByIPAndPath, formLimit, formWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }
	partnerOnly := func(h http.HandlerFunc) http.Handler { return middleware.RequirePartner(h) }

	// Public
	mux.HandleFunc("GET /", s.publicH.Index)
	mux.HandleFunc("POST /leads", s.rateLimitedHandler(s.publicH.CreateLead))
	mux.HandleFunc("GET /partners", s.publicH.ApplyPage)
	mux.HandleFunc("POST /partners", s.rateLimitedHandler(s.publicH.Apply))

	// Partner portal
	mux.HandleFunc("GET /partners/invite/{token}", s.partnerH.InvitePage)
	mux.HandleFunc("POST /partners/invite/{token}", s.rateLimitedHandler(s.partnerH.Redeem))
	mux.HandleFunc("GET /partners/login", s.partnerH.LoginPage)
	mux.HandleFunc("POST /partners/login", s.rateLimitedHandler(s.partnerH.Login))
	mux.Handle("POST /partners/logout", partnerOnly(s.partnerH.Logout))
	mux.Handle("GET /partners/dashboard", partnerOnly(s.partnerH.Dashboard))

	// Admin portal
	mux.HandleFunc("GET /admin/login", s.adminH.LoginPage)
	mux.HandleFunc("POST /admin/login", s.rateLimitedHandler(s.adminH.Login))
	mux.Handle("POST /admin/logout", admin(s.adminH.Logout))
	mux.Handle("GET /admin", admin(s.adminH.Dashboard))
	mux.Handle("GET /admin/leads.csv", admin(s.adminH.ExportCSV))
	mux.Handle("POST /admin/leads/{id}/notes", admin(s.adminH.UpdateNotes))
	mux.Handle("POST /admin/leads/{id}/shares", admin(s.adminH.ShareLead))
	mux.Handle("POST /admin/invites", admin(s.adminH.CreateInvite))
	mux.Handle("GET /admin/", admin(http.NotFound))
	mux.Handle("POST /admin/", admin(http.NotFound))
}

// Sweeper removes expired sessions. The SQL session store implements it;
// Redis expires keys on its own.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RunCleanup prunes the rate limiter and, when sweeper is non-nil, expired
// sessions every interval until ctx is done.
func (s *Server) RunCleanup(ctx context.Context, interval time.Duration, sweeper Sweeper) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.Cleanup()
			if sweeper == nil {
				continue
			}
			n, err := sweeper.DeleteExpired(ctx)
			if err != nil {
				s.logger.Error("session cleanup", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
