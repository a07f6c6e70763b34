package services

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/advn1/rback/internal/common"
)

const (
	minNameLen     = 3
	maxNameLen     = 48
	minPasswordLen = 8
	maxPasswordLen = 128
	maxEmailLen    = 254

	passwordSpecials = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

const (
	msgNameLength        = "Name must be between 3 and 48 characters"
	msgPasswordLength    = "Password must be between 8 and 128 characters"
	msgPasswordStrength  = "Password must contain at least one uppercase letter, one lowercase letter, one digit, and one special character"
	msgEmailFormat       = "Invalid email format"
	msgEmailTooLong      = "Email is too long"
	msgUserAlreadyExists = "User with this name or email already exists"
)

// FieldError lists the rule violations of one input field.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// ValidationError is returned by Register when the input breaks field rules.
// It matches common.ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string { return common.ErrValidation.Error() }

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

func (e *ValidationError) add(field, msg string) {
	for i := range e.Fields {
		if e.Fields[i].Field == field {
			e.Fields[i].Messages = append(e.Fields[i].Messages, msg)
			return
		}
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Messages: []string{msg}})
}

// validateRegistration checks name, password and email; nil means valid.
func validateRegistration(name, password, email string) *ValidationError {
	v := &ValidationError{}

	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		v.add("name", msgNameLength)
	}

	if n := utf8.RuneCountInString(password); n < minPasswordLen || n > maxPasswordLen {
		v.add("password", msgPasswordLength)
	}
	if !strongPassword(password) {
		v.add("password", msgPasswordStrength)
	}

	if !validEmail(email) {
		v.add("email", msgEmailFormat)
	}
	if utf8.RuneCountInString(email) > maxEmailLen {
		v.add("email", msgEmailTooLong)
	}

	if len(v.Fields) == 0 {
		return nil
	}
	return v
}

func strongPassword(p string) bool {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// validEmail accepts a bare address with a dotted domain. Display names and
// angle brackets are rejected.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	return strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") &&
		!strings.HasSuffix(domain, ".")
}
