package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dukerupert/leadportal/internal/auth"
	"github.com/dukerupert/leadportal/internal/csrf"
	"github.com/dukerupert/leadportal/internal/model"
)

// Page names, one per template file.
const (
	pageIndex            = "index.html"
	pagePartnerApply     = "partners_apply.html"
	pagePartnerInvite    = "partners_invite.html"
	pagePartnerLogin     = "partners_login.html"
	pagePartnerDashboard = "partners_dashboard.html"
	pageAdminLogin       = "admin_login.html"
	pageAdminDashboard   = "admin_dashboard.html"
)

var pages = []string{
	pageIndex,
	pagePartnerApply,
	pagePartnerInvite,
	pagePartnerLogin,
	pagePartnerDashboard,
	pageAdminLogin,
	pageAdminDashboard,
}

// Renderer executes page templates inside the shared layout.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses every page together with layout.html from fsys.
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages)), logger: logger}
	for _, name := range pages {
		t, err := template.New(name).ParseFS(fsys, "layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page with status. The CSRF token and the signed-in identity
// are added to data so every form and the nav can use them.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	t, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown template", "page", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["CSRF"] = csrf.Token(r.Context())
	data["IsAdmin"] = auth.IsAdmin(r.Context())
	if p, ok := auth.Partner(r.Context()); ok {
		data["Partner"] = &p
	} else {
		data["Partner"] = (*model.PartnerIdentity)(nil)
	}
	if _, ok := data["Form"]; !ok {
		data["Form"] = url.Values{}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		rd.logger.Error("template error", "page", page, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// serverError logs err and sends the generic 500 body.
func serverError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	http.Error(w, "Server error", http.StatusInternalServerError)
}
