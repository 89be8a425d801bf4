package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/leadportal/internal/auth"
	"github.com/dukerupert/leadportal/internal/csvexport"
	"github.com/dukerupert/leadportal/internal/leads"
	"github.com/dukerupert/leadportal/internal/metrics"
	"github.com/dukerupert/leadportal/internal/partner"
	"github.com/dukerupert/leadportal/internal/session"
	"github.com/dukerupert/leadportal/internal/store"
)

const recentLimit = 20

type AdminHandler struct {
	cred     *auth.AdminCredential
	leads    *store.LeadStore
	schema   leads.Introspector
	svc      *partner.Service
	sessions *session.Manager
	render   *Renderer
	logger   *slog.Logger
	now      func() time.Time
}

func NewAdminHandler(cred *auth.AdminCredential, ls *store.LeadStore, schema leads.Introspector, svc *partner.Service, sm *session.Manager, rd *Renderer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		cred:     cred,
		leads:    ls,
		schema:   schema,
		svc:      svc,
		sessions: sm,
		render:   rd,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *AdminHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, pageAdminLogin, nil)
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.cred.Verify(r.PostFormValue("password")) {
		metrics.LoginsTotal.WithLabelValues("admin", "invalid").Inc()
		h.logger.Warn("admin login failed")
		h.render.Render(w, r, http.StatusUnauthorized, pageAdminLogin, map[string]any{
			"Error": "Invalid password",
		})
		return
	}

	auth.SetAdmin(session.FromContext(r.Context()))
	if err := h.sessions.Renew(w, r); err != nil {
		serverError(w, h.logger, "renew session", err)
		return
	}
	metrics.LoginsTotal.WithLabelValues("admin", "success").Inc()
	h.logger.Info("admin logged in")

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Logout ends the whole session, partner sign-in included.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(w, r); err != nil {
		h.logger.Warn("destroy session", "error", err)
	}
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, http.StatusOK, nil)
}

// dashboard renders the admin page with extra values such as a notice.
func (h *AdminHandler) dashboard(w http.ResponseWriter, r *http.Request, status int, extra map[string]any) {
	ctx := r.Context()

	cols, err := h.schema.LeadColumns(ctx)
	if err != nil {
		serverError(w, h.logger, "load lead columns", err)
		return
	}
	rows, err := h.leads.List(ctx, cols)
	if err != nil {
		serverError(w, h.logger, "list leads", err)
		return
	}
	stats, err := h.leads.Stats(ctx, cols)
	if err != nil {
		serverError(w, h.logger, "lead stats", err)
		return
	}
	dests, err := h.leads.TopDestinations(ctx, cols)
	if err != nil {
		serverError(w, h.logger, "top destinations", err)
		return
	}
	partners, err := h.svc.ListPartners(ctx)
	if err != nil {
		serverError(w, h.logger, "list partners", err)
		return
	}
	invites, err := h.svc.RecentInvites(ctx, recentLimit)
	if err != nil {
		serverError(w, h.logger, "list invites", err)
		return
	}
	apps, err := h.svc.RecentApplications(ctx, recentLimit)
	if err != nil {
		serverError(w, h.logger, "list applications", err)
		return
	}

	var columns []string
	if len(rows) > 0 {
		columns = rows[0].Columns
	}

	data := map[string]any{
		"Leads":        rows,
		"Columns":      columns,
		"HasNotes":     cols.Has(leads.ColAdminNotes),
		"Stats":        stats,
		"Destinations": dests,
		"Partners":     partners,
		"Invites":      invites,
		"Applications": apps,
	}
	for k, v := range extra {
		data[k] = v
	}
	h.render.Render(w, r, status, pageAdminDashboard, data)
}

// ExportCSV downloads leads matching the days, city_to/state and type filters.
func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	cols, err := h.schema.LeadColumns(r.Context())
	if err != nil {
		serverError(w, h.logger, "load lead columns", err)
		return
	}
	f := leads.ParseFilter(r.URL.Query())
	rows, err := h.leads.Export(r.Context(), cols, f)
	if err != nil {
		h.logger.Error("export leads", "error", err)
		http.Error(w, "Server error exporting CSV", http.StatusInternalServerError)
		return
	}

	if err := csvexport.Serve(w, rows, h.now()); err != nil {
		h.logger.Error("write csv", "error", err)
		return
	}
	metrics.CSVExportsTotal.Inc()
	h.logger.Info("leads exported", "rows", len(rows), "filtered", !f.Empty())
}

func leadID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *AdminHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(r)
	if !ok {
		http.Error(w, "Bad id", http.StatusBadRequest)
		return
	}

	cols, err := h.schema.LeadColumns(r.Context())
	if err != nil {
		serverError(w, h.logger, "load lead columns", err)
		return
	}
	found, err := h.leads.UpdateNotes(r.Context(), cols, id, r.PostFormValue("admin_notes"))
	switch {
	case errors.Is(err, leads.ErrNoNotesColumn):
		http.Error(w, "Table missing admin_notes column", http.StatusInternalServerError)
		return
	case err != nil:
		h.logger.Error("update admin_notes", "lead_id", id, "error", err)
		http.Error(w, "Server error updating notes", http.StatusInternalServerError)
		return
	case !found:
		http.Error(w, "Lead not found", http.StatusNotFound)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// ShareLead makes a lead visible to the partner named by partner_email.
func (h *AdminHandler) ShareLead(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(r)
	if !ok {
		http.Error(w, "Bad id", http.StatusBadRequest)
		return
	}

	created, err := h.svc.ShareLead(r.Context(), r.PostFormValue("partner_email"), id)
	switch {
	case errors.Is(err, partner.ErrPartnerNotFound):
		http.Error(w, "Partner not found", http.StatusNotFound)
		return
	case errors.Is(err, partner.ErrLeadNotFound):
		http.Error(w, "Lead not found", http.StatusNotFound)
		return
	case err != nil:
		serverError(w, h.logger, "share lead", err)
		return
	}
	h.logger.Info("lead shared", "lead_id", id, "created", created)

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// CreateInvite issues a partner invite. The link is shown on the dashboard
// so it can be passed on by hand if the email did not go out.
func (h *AdminHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CreateInvite(r.Context(), r.PostFormValue("email"))
	var ve *partner.ValidationError
	switch {
	case errors.As(err, &ve):
		h.dashboard(w, r, http.StatusBadRequest, map[string]any{
			"Notice":      ve.Message,
			"NoticeError": true,
		})
		return
	case err != nil:
		serverError(w, h.logger, "create invite", err)
		return
	}

	notice := "Invite sent to " + res.Invite.Email + "."
	if res.MailErr != nil {
		notice = "Invite created for " + res.Invite.Email + " but the email could not be sent. Share this link:"
	}
	h.dashboard(w, r, http.StatusOK, map[string]any{
		"Notice":      notice,
		"NoticeError": res.MailErr != nil,
		"InviteLink":  res.Link,
	})
}
