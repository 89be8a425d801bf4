package partner

import (
	"errors"
	"strings"
)

var (
	ErrInviteNotFound     = errors.New("invite not found")
	ErrInviteUsed         = errors.New("invite already used")
	ErrInviteExpired      = errors.New("invite expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrPartnerNotFound    = errors.New("partner not found")
	ErrLeadNotFound       = errors.New("lead not found")
)

// ValidationError carries a message fit to show on the form that produced it.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	return "validation failed (" + strings.Join(e.Fields, ", ") + "): " + e.Message
}
