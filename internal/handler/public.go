package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/leadportal/internal/feed"
	"github.com/dukerupert/leadportal/internal/leads"
	"github.com/dukerupert/leadportal/internal/metrics"
	"github.com/dukerupert/leadportal/internal/partner"
	"github.com/dukerupert/leadportal/internal/store"
)

// NewsSource supplies landing page headlines. It never fails; an empty
// slice means there is nothing to show.
type NewsSource interface {
	Items(ctx context.Context) []feed.Item
}

type PublicHandler struct {
	leads    *store.LeadStore
	schema   leads.Introspector
	partners *partner.Service
	news     NewsSource
	validate *validator.Validate
	render   *Renderer
	logger   *slog.Logger
}

func NewPublicHandler(ls *store.LeadStore, schema leads.Introspector, ps *partner.Service, news NewsSource, rd *Renderer, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		leads:    ls,
		schema:   schema,
		partners: ps,
		news:     news,
		validate: validator.New(),
		render:   rd,
		logger:   logger,
	}
}

func (h *PublicHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.render.Render(w, r, http.StatusOK, pageIndex, map[string]any{
		"News":      h.news.Items(r.Context()),
		"Submitted": r.URL.Query().Get("sent") == "1",
	})
}

// CreateLead stores a landing page submission.
func (h *PublicHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	fields, err := leads.ParseIntake(h.validate, r.PostForm)
	if errors.Is(err, leads.ErrInvalidIntake) {
		h.render.Render(w, r, http.StatusBadRequest, pageIndex, map[string]any{
			"News":  h.news.Items(r.Context()),
			"Error": leads.IntakeMessage,
			"Form":  r.PostForm,
		})
		return
	}
	if err != nil {
		serverError(w, h.logger, "parse lead form", err)
		return
	}

	cols, err := h.schema.LeadColumns(r.Context())
	if err != nil {
		serverError(w, h.logger, "load lead columns", err)
		return
	}
	id, err := h.leads.Create(r.Context(), cols, fields)
	if err != nil {
		serverError(w, h.logger, "create lead", err)
		return
	}
	metrics.LeadsCreatedTotal.Inc()
	h.logger.Info("lead created", "lead_id", id)

	http.Redirect(w, r, "/?sent=1", http.StatusSeeOther)
}

func (h *PublicHandler) ApplyPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, pagePartnerApply, nil)
}

// Apply records a partner application.
func (h *PublicHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	_, err := h.partners.Apply(r.Context(), partner.Application{
		CompanyName: r.PostFormValue("company_name"),
		ContactName: r.PostFormValue("contact_name"),
		Email:       r.PostFormValue("email"),
		Phone:       r.PostFormValue("phone"),
		Website:     r.PostFormValue("website"),
		Message:     r.PostFormValue("message"),
	})
	var ve *partner.ValidationError
	switch {
	case errors.As(err, &ve):
		h.render.Render(w, r, http.StatusBadRequest, pagePartnerApply, map[string]any{
			"Error": ve.Message,
			"Form":  r.PostForm,
		})
		return
	case err != nil:
		serverError(w, h.logger, "save partner application", err)
		return
	}

	h.render.Render(w, r, http.StatusOK, pagePartnerApply, map[string]any{"Submitted": true})
}
