package leads

import (
	"errors"
	"maps"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// IntakeMessage is shown when the public lead form does not validate.
const IntakeMessage = "Please enter your name, a valid email address and where you are moving to."

var ErrInvalidIntake = errors.New("invalid lead form")

const (
	maxExtraFields = 20
	maxValueLen    = 2000 // characters
)

// Intake is the public relocation form.
type Intake struct {
	Name     string `validate:"required,max=200"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"max=50"`
	CityFrom string `validate:"max=200"`
	CityTo   string `validate:"required,max=200"`
	Type     string `validate:"omitempty,oneof=individual family business"`
}

// ParseIntake validates a posted lead form and returns the fields to store.
// Form values beyond the known ones are kept so Insert can put them in extra.
func ParseIntake(v *validator.Validate, form url.Values) (map[string]string, error) {
	in := Intake{
		Name:     strings.TrimSpace(form.Get("name")),
		Email:    strings.ToLower(strings.TrimSpace(form.Get("email"))),
		Phone:    strings.TrimSpace(form.Get("phone")),
		CityFrom: strings.TrimSpace(form.Get("city_from")),
		CityTo:   strings.TrimSpace(form.Get("city_to")),
		Type:     strings.ToLower(strings.TrimSpace(form.Get("type"))),
	}
	if err := v.Struct(in); err != nil {
		return nil, ErrInvalidIntake
	}

	fields := map[string]string{
		"name":      in.Name,
		"email":     in.Email,
		"phone":     in.Phone,
		"city_from": in.CityFrom,
		"city_to":   in.CityTo,
		"type":      in.Type,
	}
	// Sorted so the same form always keeps the same extra fields.
	extra := 0
	for _, key := range slices.Sorted(maps.Keys(form)) {
		vals := form[key]
		if _, known := fields[key]; known || key == "_csrf" || !validKey(key) || len(vals) == 0 {
			continue
		}
		val := strings.TrimSpace(vals[0])
		if val == "" {
			continue
		}
		if extra == maxExtraFields {
			break
		}
		val = truncate(val, maxValueLen)
		fields[key] = val
		extra++
	}
	return fields, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// validKey accepts snake_case names only, which keeps stray fields out of extra.
func validKey(k string) bool {
	if k == "" || len(k) > 64 {
		return false
	}
	for _, r := range k {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}
