// internal/validation/validators.go

package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Messages shown to clients
const (
	MsgEmailInvalid  = "Please enter a valid email address."
	MsgPasswordWeak  = "Password must be at least 8 characters with uppercase, lowercase, and number."
	MsgNameInvalid   = "Name must be between 2 and 50 characters."
	minPasswordChars = 8
	minNameChars     = 2
	maxNameChars     = 50
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
		"/", "&#x2F;",
	)
)

// Errors collects validation failures for a request
type Errors struct {
	Messages []string `json:"errors"`
}

func (e *Errors) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Add records a failure message
func (e *Errors) Add(msg string) {
	e.Messages = append(e.Messages, msg)
}

// Err returns nil when nothing failed
func (e *Errors) Err() error {
	if len(e.Messages) == 0 {
		return nil
	}
	return e
}

// ValidateEmail checks the address has the shape local@domain.tld
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword requires 8+ letters and digits with at least one upper, one lower and one digit
func ValidatePassword(password string) bool {
	if len(password) < minPasswordChars {
		return false
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			return false
		}
	}
	return upper && lower && digit
}

// ValidateName checks the name length in characters
func ValidateName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= minNameChars && n <= maxNameChars
}

// SanitizeInput escapes characters that are significant in HTML
func SanitizeInput(input string) string {
	return htmlEscaper.Replace(strings.TrimFunc(input, unicode.IsSpace))
}

// ValidateRegistration validates a sign-up request and reports every problem at once
func ValidateRegistration(email, password, name string) error {
	errs := &Errors{}

	if !ValidateEmail(email) {
		errs.Add(MsgEmailInvalid)
	}
	if !ValidatePassword(password) {
		errs.Add(MsgPasswordWeak)
	}
	if !ValidateName(name) {
		errs.Add(MsgNameInvalid)
	}

	return errs.Err()
}
