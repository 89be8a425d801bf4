package auth

import (
	"context"

	"github.com/dukerupert/leadportal/internal/model"
	"github.com/dukerupert/leadportal/internal/session"
)

// IsAdmin reports whether the request's session has passed admin login.
func IsAdmin(ctx context.Context) bool {
	sess := session.FromContext(ctx)
	return sess != nil && sess.Data.IsAdmin
}

// Partner returns the signed-in partner, if any.
func Partner(ctx context.Context) (model.PartnerIdentity, bool) {
	sess := session.FromContext(ctx)
	if sess == nil || sess.Data.PartnerID == 0 {
		return model.PartnerIdentity{}, false
	}
	return model.PartnerIdentity{
		ID:      sess.Data.PartnerID,
		Email:   sess.Data.PartnerEmail,
		Company: sess.Data.PartnerCompany,
	}, true
}

func PartnerID(ctx context.Context) int64 {
	p, _ := Partner(ctx)
	return p.ID
}

func SetAdmin(sess *model.Session) {
	sess.Data.IsAdmin = true
}

func SetPartner(sess *model.Session, p model.PartnerIdentity) {
	sess.Data.PartnerID = p.ID
	sess.Data.PartnerEmail = p.Email
	sess.Data.PartnerCompany = p.Company
}

// ClearPartner signs the partner out without touching the rest of the session.
func ClearPartner(sess *model.Session) {
	sess.Data.PartnerID = 0
	sess.Data.PartnerEmail = ""
	sess.Data.PartnerCompany = ""
}
