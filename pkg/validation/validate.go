package validation

import (
	"regexp"
	"strings"

	"relay/pkg/errs"
)

var (
	usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)
	phoneRe    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// NormalizeUsername lowercases and trims a username for storage and
// comparison. Usernames are case-insensitive identifiers.
func NormalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

// ValidateUsername checks a normalized username against the allowed shape.
func ValidateUsername(u string) error {
	if !usernameRe.MatchString(u) {
		return errs.E(errs.Validation, "invalid username")
	}
	return nil
}

// ValidatePhone checks a phone number shape: optional leading +, digits only.
func ValidatePhone(p string) error {
	if !phoneRe.MatchString(strings.TrimSpace(p)) {
		return errs.E(errs.Validation, "invalid phone number")
	}
	return nil
}

// ValidateProfile checks profile fields on update. First name is required,
// last name is optional.
func ValidateProfile(firstName string) error {
	if strings.TrimSpace(firstName) == "" {
		return errs.E(errs.Validation, "first name is required")
	}
	return nil
}

// MessageText trims a candidate message body and rejects empty or
// whitespace-only input.
func MessageText(text string) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", errs.E(errs.Validation, "empty message text")
	}
	return t, nil
}

// DefaultUsername derives the initial username for a fresh account from the
// phone number: "user" plus the last four digits.
func DefaultUsername(phone string) string {
	digits := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return "user" + digits
}
