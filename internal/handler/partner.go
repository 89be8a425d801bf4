package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/leadportal/internal/auth"
	"github.com/dukerupert/leadportal/internal/leads"
	"github.com/dukerupert/leadportal/internal/metrics"
	"github.com/dukerupert/leadportal/internal/model"
	"github.com/dukerupert/leadportal/internal/partner"
	"github.com/dukerupert/leadportal/internal/session"
	"github.com/dukerupert/leadportal/internal/store"
)

type PartnerHandler struct {
	svc      *partner.Service
	leads    *store.LeadStore
	schema   leads.Introspector
	sessions *session.Manager
	render   *Renderer
	logger   *slog.Logger
}

func NewPartnerHandler(svc *partner.Service, ls *store.LeadStore, schema leads.Introspector, sm *session.Manager, rd *Renderer, logger *slog.Logger) *PartnerHandler {
	return &PartnerHandler{
		svc:      svc,
		leads:    ls,
		schema:   schema,
		sessions: sm,
		render:   rd,
		logger:   logger,
	}
}

func (h *PartnerHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, pagePartnerLogin, nil)
}

func (h *PartnerHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	p, err := h.svc.Authenticate(r.Context(), email, r.PostFormValue("password"))

	fail := func(status int, msg, result string) {
		metrics.LoginsTotal.WithLabelValues("partner", result).Inc()
		h.render.Render(w, r, status, pagePartnerLogin, map[string]any{
			"Error": msg,
			"Email": strings.TrimSpace(email),
		})
	}
	switch {
	case errors.Is(err, partner.ErrInvalidCredentials):
		fail(http.StatusUnauthorized, "Invalid email or password", "invalid")
		return
	case errors.Is(err, partner.ErrAccountDisabled):
		fail(http.StatusForbidden, "Account disabled", "disabled")
		return
	case err != nil:
		serverError(w, h.logger, "partner login", err)
		return
	}

	sess := session.FromContext(r.Context())
	auth.SetPartner(sess, model.PartnerIdentity{ID: p.ID, Email: p.Email, Company: p.CompanyName})
	if err := h.sessions.Renew(w, r); err != nil {
		serverError(w, h.logger, "renew session", err)
		return
	}
	metrics.LoginsTotal.WithLabelValues("partner", "success").Inc()
	h.logger.Info("partner logged in", "partner_id", p.ID)

	http.Redirect(w, r, "/partners/dashboard", http.StatusSeeOther)
}

// Logout forgets the partner but keeps the session itself.
func (h *PartnerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearPartner(session.FromContext(r.Context()))
	if err := h.sessions.Save(r); err != nil {
		serverError(w, h.logger, "save session", err)
		return
	}
	http.Redirect(w, r, "/partners/login", http.StatusSeeOther)
}

// Dashboard lists the redacted leads shared with the signed-in partner.
func (h *PartnerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.Partner(r.Context())

	// Status can change after login, so it is read again on every visit.
	switch err := h.svc.CheckActive(r.Context(), p.ID); {
	case errors.Is(err, partner.ErrAccountDisabled), errors.Is(err, partner.ErrPartnerNotFound):
		auth.ClearPartner(session.FromContext(r.Context()))
		if err := h.sessions.Save(r); err != nil {
			h.logger.Warn("save session", "error", err)
		}
		h.logger.Info("partner session ended", "partner_id", p.ID, "reason", err)
		h.render.Render(w, r, http.StatusForbidden, pagePartnerLogin, map[string]any{
			"Error": "Account disabled",
			"Email": p.Email,
		})
		return
	case err != nil:
		serverError(w, h.logger, "check partner status", err)
		return
	}

	cols, err := h.schema.LeadColumns(r.Context())
	if err != nil {
		serverError(w, h.logger, "load lead columns", err)
		return
	}
	rows, err := h.leads.ListForPartner(r.Context(), cols, p.ID)
	if err != nil {
		serverError(w, h.logger, "list partner leads", err)
		return
	}

	company := p.Company
	if company == "" {
		company = "Partner"
	}
	h.render.Render(w, r, http.StatusOK, pagePartnerDashboard, map[string]any{
		"Company": company,
		"Columns": leads.Builder{Cols: cols}.PartnerColumns(),
		"Leads":   rows,
	})
}

// inviteFailure writes the response for a token that can't be redeemed.
// It reports false when err is not one of the invite states.
func inviteFailure(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, partner.ErrInviteNotFound):
		http.Error(w, "Invalid invite link.", http.StatusNotFound)
	case errors.Is(err, partner.ErrInviteUsed):
		http.Error(w, "This invite link was already used.", http.StatusBadRequest)
	case errors.Is(err, partner.ErrInviteExpired):
		http.Error(w, "This invite link has expired.", http.StatusBadRequest)
	default:
		return false
	}
	return true
}

func (h *PartnerHandler) InvitePage(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	inv, err := h.svc.Lookup(r.Context(), token)
	if err != nil {
		if !inviteFailure(w, err) {
			serverError(w, h.logger, "look up invite", err)
		}
		return
	}
	h.render.Render(w, r, http.StatusOK, pagePartnerInvite, map[string]any{
		"Token":       token,
		"InviteEmail": inv.Email,
	})
}

// Redeem turns an invite into a partner account, then sends the new
// partner to log in.
func (h *PartnerHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	form := partner.Signup{
		CompanyName: r.PostFormValue("company_name"),
		ContactName: r.PostFormValue("contact_name"),
		Password:    r.PostFormValue("password"),
	}

	_, err := h.svc.Redeem(r.Context(), token, form)
	if err == nil {
		http.Redirect(w, r, "/partners/login", http.StatusSeeOther)
		return
	}
	if inviteFailure(w, err) {
		return
	}

	var ve *partner.ValidationError
	if !errors.As(err, &ve) {
		serverError(w, h.logger, "redeem invite", err)
		return
	}
	inv, lerr := h.svc.Lookup(r.Context(), token)
	if lerr != nil {
		if !inviteFailure(w, lerr) {
			serverError(w, h.logger, "look up invite", lerr)
		}
		return
	}
	h.render.Render(w, r, http.StatusBadRequest, pagePartnerInvite, map[string]any{
		"Token":       token,
		"InviteEmail": inv.Email,
		"Error":       ve.Message,
		"CompanyName": strings.TrimSpace(form.CompanyName),
		"ContactName": strings.TrimSpace(form.ContactName),
	})
}
