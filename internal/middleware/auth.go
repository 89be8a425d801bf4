package middleware

import (
	"net/http"

	"github.com/dukerupert/leadportal/internal/auth"
)

const (
	AdminLoginPath   = "/admin/login"
	PartnerLoginPath = "/partners/login"
)

// RequireAdmin sends visitors without an admin session to the admin login.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			redirectTo(w, r, AdminLoginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePartner sends visitors without a partner session to the partner login.
func RequirePartner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.Partner(r.Context()); !ok {
			redirectTo(w, r, PartnerLoginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func redirectTo(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
