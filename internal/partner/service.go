// Package partner runs the partner lifecycle: applications, invites,
// signup through an invite, login and lead sharing.
package partner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/leadportal/internal/metrics"
	"github.com/dukerupert/leadportal/internal/model"
	"github.com/dukerupert/leadportal/internal/store"
)

const (
	DefaultInviteExpiry = 14 * 24 * time.Hour
	DefaultBcryptCost   = 12
)

// Mailer delivers invite links.
type Mailer interface {
	SendPartnerInvite(ctx context.Context, toEmail, link string, expiresAt time.Time) error
}

type Stores struct {
	Partners    *store.PartnerStore
	Invites     *store.InviteStore
	Shares      *store.ShareStore
	Leads       *store.LeadStore
	Submissions *store.SubmissionStore
}

type Service struct {
	stores     Stores
	mailer     Mailer
	baseURL    string
	expiry     time.Duration
	bcryptCost int
	now        func() time.Time
	logger     *slog.Logger
	validate   *validator.Validate

	dummyOnce sync.Once
	dummyHash []byte
}

type Option func(*Service)

func WithInviteExpiry(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithBcryptCost lowers the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(stores Stores, mailer Mailer, baseURL string, opts ...Option) *Service {
	s := &Service{
		stores:     stores,
		mailer:     mailer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		expiry:     DefaultInviteExpiry,
		bcryptCost: DefaultBcryptCost,
		now:        time.Now,
		logger:     slog.Default(),
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InviteLink is the signup URL for a token.
func (s *Service) InviteLink(token string) string {
	return s.baseURL + "/partners/invite/" + token
}

type InviteResult struct {
	Invite *model.PartnerInvite
	Link   string
	// MailErr is set when the invite was stored but the email failed.
	MailErr error
}

// CreateInvite stores an invite and mails its link. A mail failure does not
// undo the invite; it is reported in the result.
func (s *Service) CreateInvite(ctx context.Context, email string) (*InviteResult, error) {
	email = NormalizeEmail(email)
	if err := check(s.validate, inviteRequest{Email: email}, inviteEmailMessage); err != nil {
		return nil, err
	}

	inv, err := s.stores.Invites.Create(ctx, email, s.now().Add(s.expiry))
	if err != nil {
		return nil, err
	}
	metrics.InvitesCreatedTotal.Inc()

	res := &InviteResult{Invite: inv, Link: s.InviteLink(inv.Token)}
	if err := s.mailer.SendPartnerInvite(ctx, email, res.Link, inv.ExpiresAt); err != nil {
		s.logger.Warn("invite created but email failed", "invite_id", inv.ID, "to", email, "error", err)
		res.MailErr = err
	}
	s.logger.Info("partner invite created", "invite_id", inv.ID, "to", email)
	return res, nil
}

// Lookup finds a redeemable invite. Used is reported before expired.
func (s *Service) Lookup(ctx context.Context, token string) (*model.PartnerInvite, error) {
	if token == "" {
		return nil, ErrInviteNotFound
	}
	inv, err := s.stores.Invites.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInviteNotFound
	}
	if inv.Used() {
		return inv, ErrInviteUsed
	}
	if inv.Expired(s.now()) {
		return inv, ErrInviteExpired
	}
	return inv, nil
}

// Redeem creates the partner account for an invite. The invite is marked
// used in the same transaction, so at most one account results per token.
func (s *Service) Redeem(ctx context.Context, token string, form Signup) (*model.Partner, error) {
	p, err := s.redeem(ctx, token, form)
	metrics.RedemptionsTotal.WithLabelValues(redeemResult(err)).Inc()
	return p, err
}

func (s *Service) redeem(ctx context.Context, token string, form Signup) (*model.Partner, error) {
	inv, err := s.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	form.CompanyName = strings.TrimSpace(form.CompanyName)
	form.ContactName = strings.TrimSpace(form.ContactName)
	if err := checkSignup(s.validate, form); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p, err := s.stores.Invites.Redeem(ctx, inv.ID, s.now(), store.NewPartner{
		Email:        NormalizeEmail(inv.Email),
		PasswordHash: string(hash),
		CompanyName:  form.CompanyName,
		ContactName:  form.ContactName,
	})
	switch {
	case errors.Is(err, store.ErrInviteUnavailable):
		return nil, s.reclassify(ctx, inv.ID)
	case errors.Is(err, store.ErrDuplicate):
		return nil, &ValidationError{Message: duplicateMessage, Fields: []string{"email"}}
	case err != nil:
		return nil, err
	}

	s.logger.Info("partner account created", "partner_id", p.ID, "invite_id", inv.ID)
	return p, nil
}

// reclassify explains why a conditional redeem matched no row.
func (s *Service) reclassify(ctx context.Context, inviteID int64) error {
	inv, err := s.stores.Invites.GetByID(ctx, inviteID)
	if err != nil {
		return err
	}
	if inv == nil {
		return ErrInviteNotFound
	}
	if inv.Used() {
		return ErrInviteUsed
	}
	return ErrInviteExpired
}

func redeemResult(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInviteUsed):
		return "used"
	case errors.Is(err, ErrInviteExpired):
		return "expired"
	case errors.Is(err, ErrInviteNotFound):
		return "not_found"
	case errors.As(err, &ve):
		return "invalid"
	default:
		return "error"
	}
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("leadportal-dummy-password"), s.bcryptCost)
	})
	return s.dummyHash
}

// Authenticate checks partner credentials. A disabled account is reported
// before the password is checked.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.Partner, error) {
	p, err := s.stores.Partners.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if p == nil {
		// Keep response time close to the found-account path.
		bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if !p.Active() {
		return nil, ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return p, nil
}

// CheckActive confirms a signed-in partner may still use the portal. A
// deleted account is reported as ErrPartnerNotFound.
func (s *Service) CheckActive(ctx context.Context, partnerID int64) error {
	p, err := s.stores.Partners.GetByID(ctx, partnerID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrPartnerNotFound
	}
	if !p.Active() {
		return ErrAccountDisabled
	}
	return nil
}

// Apply records a partner application for the team to review.
func (s *Service) Apply(ctx context.Context, app Application) (*model.Submission, error) {
	app.CompanyName = strings.TrimSpace(app.CompanyName)
	app.ContactName = strings.TrimSpace(app.ContactName)
	app.Email = NormalizeEmail(app.Email)
	app.Phone = strings.TrimSpace(app.Phone)
	app.Website = strings.TrimSpace(app.Website)
	app.Message = strings.TrimSpace(app.Message)

	if err := check(s.validate, app, applicationMessage); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"company_name": app.CompanyName,
		"contact_name": app.ContactName,
		"email":        app.Email,
	}
	for k, v := range map[string]string{"phone": app.Phone, "website": app.Website, "message": app.Message} {
		if v != "" {
			fields[k] = v
		}
	}

	sub, err := s.stores.Submissions.Create(ctx, model.SubmissionKindPartnerApplication, app.Email, fields)
	if err != nil {
		return nil, err
	}
	s.logger.Info("partner application received", "submission_id", sub.ID)
	return sub, nil
}

// ShareLead gives the partner with email access to a lead. It reports
// whether a new share was created.
func (s *Service) ShareLead(ctx context.Context, partnerEmail string, leadID int64) (bool, error) {
	p, err := s.partnerByEmail(ctx, partnerEmail)
	if err != nil {
		return false, err
	}
	ok, err := s.stores.Leads.Exists(ctx, leadID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrLeadNotFound
	}
	return s.stores.Shares.Share(ctx, p.ID, leadID)
}

func (s *Service) ListPartners(ctx context.Context) ([]model.Partner, error) {
	return s.stores.Partners.List(ctx)
}

func (s *Service) RecentInvites(ctx context.Context, limit int) ([]model.PartnerInvite, error) {
	return s.stores.Invites.ListRecent(ctx, limit)
}

func (s *Service) RecentApplications(ctx context.Context, limit int) ([]model.Submission, error) {
	return s.stores.Submissions.ListByKind(ctx, model.SubmissionKindPartnerApplication, limit)
}

// UnshareLead revokes a partner's access to a lead.
func (s *Service) UnshareLead(ctx context.Context, partnerEmail string, leadID int64) error {
	p, err := s.partnerByEmail(ctx, partnerEmail)
	if err != nil {
		return err
	}
	return s.stores.Shares.Unshare(ctx, p.ID, leadID)
}

// SharedLeadIDs lists the leads a partner can see.
func (s *Service) SharedLeadIDs(ctx context.Context, partnerEmail string) ([]int64, error) {
	p, err := s.partnerByEmail(ctx, partnerEmail)
	if err != nil {
		return nil, err
	}
	return s.stores.Shares.LeadIDs(ctx, p.ID)
}

// SetStatus enables or disables a partner account. Disabled partners can't log in.
func (s *Service) SetStatus(ctx context.Context, partnerEmail, status string) error {
	if status != model.PartnerStatusActive && status != model.PartnerStatusDisabled {
		return &ValidationError{Message: "Status must be active or disabled.", Fields: []string{"status"}}
	}
	p, err := s.partnerByEmail(ctx, partnerEmail)
	if err != nil {
		return err
	}
	if err := s.stores.Partners.SetStatus(ctx, p.ID, status); err != nil {
		return err
	}
	s.logger.Info("partner status changed", "partner_id", p.ID, "status", status)
	return nil
}

func (s *Service) partnerByEmail(ctx context.Context, email string) (*model.Partner, error) {
	p, err := s.stores.Partners.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPartnerNotFound
	}
	return p, nil
}
