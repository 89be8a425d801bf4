// Package session keeps a server-side record for every visitor, keyed by a
// random id carried in an HMAC-signed cookie.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/leadportal/internal/model"
)

const (
	DefaultCookieName = "leadportal_session"
	DefaultTTL        = 7 * 24 * time.Hour
)

// Store persists session records. Get returns nil, nil for unknown or
// expired ids.
type Store interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, sess *model.Session) error
	Delete(ctx context.Context, id string) error
}

type contextKey struct{}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the request's session, or nil outside Middleware.
func FromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(contextKey{}).(*model.Session)
	return sess
}

// ID returns the session id for ctx, or "" when there is none.
func ID(ctx context.Context) string {
	if sess := FromContext(ctx); sess != nil {
		return sess.ID
	}
	return ""
}

type Manager struct {
	store      Store
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithCookieName(name string) Option {
	return func(m *Manager) { m.cookieName = name }
}

// WithSecureCookie marks the cookie Secure. Enable behind HTTPS.
func WithSecureCookie(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, secret string, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		secret:     []byte(secret),
		ttl:        DefaultTTL,
		cookieName: DefaultCookieName,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

// verify returns the id from a signed cookie value, or "" when the
// signature does not match.
func (m *Manager) verify(value string) string {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return ""
	}
	want := m.sign(id)
	if !hmac.Equal([]byte(want), []byte(id+"."+sig)) {
		return ""
	}
	return id
}

func (m *Manager) setCookie(w http.ResponseWriter, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.sign(sess.ID),
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// load returns the stored session named by the request cookie, or nil.
func (m *Manager) load(r *http.Request) (*model.Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	id := m.verify(cookie.Value)
	if id == "" {
		return nil, nil
	}
	return m.store.Get(r.Context(), id)
}

func (m *Manager) create(ctx context.Context) (*model.Session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	sess := &model.Session{ID: id, CreatedAt: now, ExpiresAt: now.Add(m.ttl)}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Middleware attaches a session to every request, starting one when the
// visitor has none.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.load(r)
		if err != nil {
			m.logger.Error("failed to load session", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if sess == nil {
			sess, err = m.create(r.Context())
			if err != nil {
				m.logger.Error("failed to create session", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			m.setCookie(w, sess)
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// Save persists changes made to the request's session data.
func (m *Manager) Save(r *http.Request) error {
	sess := FromContext(r.Context())
	if sess == nil {
		return errors.New("no session in context")
	}
	return m.store.Save(r.Context(), sess)
}

// Renew moves the session to a fresh id, keeping its data, and saves it.
// The session in the request context is updated in place.
func (m *Manager) Renew(w http.ResponseWriter, r *http.Request) error {
	sess := FromContext(r.Context())
	if sess == nil {
		return errors.New("no session in context")
	}
	oldID := sess.ID

	id, err := newID()
	if err != nil {
		return err
	}
	now := m.now().UTC()
	sess.ID = id
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(m.ttl)

	if err := m.store.Save(r.Context(), sess); err != nil {
		return err
	}
	if err := m.store.Delete(r.Context(), oldID); err != nil {
		m.logger.Warn("failed to delete old session", "error", err)
	}
	m.setCookie(w, sess)
	return nil
}

// Destroy removes the session and its cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess := FromContext(r.Context())
	m.clearCookie(w)
	if sess == nil {
		return nil
	}
	id := sess.ID
	sess.Data = model.SessionData{}
	return m.store.Delete(r.Context(), id)
}
