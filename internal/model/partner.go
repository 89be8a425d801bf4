package model

import "time"

const (
	PartnerStatusActive   = "active"
	PartnerStatusDisabled = "disabled"
)

type Partner struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CompanyName  string    `json:"company_name"`
	ContactName  *string   `json:"contact_name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Active reports whether the partner may sign in.
func (p *Partner) Active() bool {
	return p.Status == PartnerStatusActive
}

type PartnerInvite struct {
	ID        int64      `json:"id"`
	Token     string     `json:"-"`
	Email     string     `json:"email"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (i *PartnerInvite) Used() bool {
	return i.UsedAt != nil
}

// Expired reports whether the invite can no longer be redeemed at now.
func (i *PartnerInvite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

type LeadShare struct {
	ID        int64     `json:"id"`
	PartnerID int64     `json:"partner_id"`
	LeadID    int64     `json:"lead_id"`
	CreatedAt time.Time `json:"created_at"`
}
