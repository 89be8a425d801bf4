// Package csrf binds form tokens to the visitor's session. A token is a
// random nonce plus an HMAC over the session id and that nonce, so any token
// minted for a session stays valid for as long as the session does.
package csrf

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/leadportal/internal/metrics"
)

const (
	FieldName  = "_csrf"
	HeaderName = "X-CSRF-Token"

	nonceLen = 16

	// RejectMessage is the body sent with every CSRF failure.
	RejectMessage = "Forbidden (CSRF): invalid or missing token. Please refresh and try again."
)

type contextKey struct{}

// Token returns the token minted for this request, or "".
func Token(ctx context.Context) string {
	t, _ := ctx.Value(contextKey{}).(string)
	return t
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKey{}, token)
}

type Protector struct {
	secret    []byte
	sessionID func(*http.Request) string
	logger    *slog.Logger
}

// New returns a Protector that reads the session id with sessionID.
func New(secret string, sessionID func(*http.Request) string, logger *slog.Logger) *Protector {
	return &Protector{secret: []byte(secret), sessionID: sessionID, logger: logger}
}

func (p *Protector) mac(sessionID, nonce string) string {
	m := hmac.New(sha256.New, p.secret)
	m.Write([]byte(sessionID))
	m.Write([]byte("!"))
	m.Write([]byte(nonce))
	return hex.EncodeToString(m.Sum(nil))
}

// Mint issues a new token for sessionID.
func (p *Protector) Mint(sessionID string) (string, error) {
	b := make([]byte, nonceLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	nonce := hex.EncodeToString(b)
	return nonce + "." + p.mac(sessionID, nonce), nil
}

// Verify reports whether token was minted for sessionID with this secret.
func (p *Protector) Verify(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || len(nonce) != nonceLen*2 {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(p.mac(sessionID, nonce)))
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// submitted reads the token from the header, then the form body.
func submitted(r *http.Request) string {
	if t := r.Header.Get(HeaderName); t != "" {
		return t
	}
	return r.PostFormValue(FieldName)
}

// Middleware rejects unsafe requests without a valid token and exposes a
// fresh token to everything downstream.
func (p *Protector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := p.sessionID(r)

		if !safeMethod(r.Method) && !p.Verify(sid, submitted(r)) {
			metrics.CSRFRejectionsTotal.Inc()
			p.logger.Warn("csrf rejected", "method", r.Method, "path", r.URL.Path)
			http.Error(w, RejectMessage, http.StatusForbidden)
			return
		}

		token, err := p.Mint(sid)
		if err != nil {
			p.logger.Error("failed to mint csrf token", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
	})
}
