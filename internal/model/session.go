package model

import "time"

// SessionData is the typed payload kept server-side for a visitor.
type SessionData struct {
	IsAdmin        bool   `json:"is_admin,omitempty"`
	PartnerID      int64  `json:"partner_id,omitempty"`
	PartnerEmail   string `json:"partner_email,omitempty"`
	PartnerCompany string `json:"partner_company,omitempty"`
}

type Session struct {
	ID        string      `json:"id"`
	Data      SessionData `json:"data"`
	ExpiresAt time.Time   `json:"expires_at"`
	CreatedAt time.Time   `json:"created_at"`
}

// PartnerIdentity is what the partner portal knows about a signed-in partner.
type PartnerIdentity struct {
	ID      int64
	Email   string
	Company string
}
