package partner

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/leadportal/internal/auth"
)

// Signup is the invite redemption form.
type Signup struct {
	CompanyName string `validate:"required"`
	ContactName string
	Password    string `validate:"min=10"`
}

// Application is the public "become a partner" form.
type Application struct {
	CompanyName string `validate:"required"`
	ContactName string `validate:"required"`
	Email       string `validate:"required,email"`
	Phone       string
	Website     string `validate:"omitempty,url"`
	Message     string `validate:"max=4000"`
}

type inviteRequest struct {
	Email string `validate:"required,email"`
}

const (
	signupMessage       = "Please enter a company name and a password (10+ characters)."
	applicationMessage  = "Please enter your company, your name and a valid email address."
	inviteEmailMessage  = "Please enter a valid email address."
	duplicateMessage    = "An account with this email already exists."
	longPasswordMessage = "That password is too long. Please use at most 72 bytes (fewer if it has accents or symbols)."
)

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkSignup validates the redemption form. bcrypt only hashes 72 bytes, and
// the validator's max counts runes, so the upper bound is checked here.
func checkSignup(v *validator.Validate, form Signup) error {
	if err := check(v, form, signupMessage); err != nil {
		return err
	}
	if len(form.Password) > auth.MaxPasswordBytes {
		return &ValidationError{Message: longPasswordMessage, Fields: []string{"password"}}
	}
	return nil
}

// check runs struct validation and folds failures into a ValidationError.
func check(v *validator.Validate, s any, message string) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return &ValidationError{Message: message, Fields: fields}
}
