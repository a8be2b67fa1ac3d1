package utils

import (
	"net/mail"
	"strings"
	"unicode"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinEmailLength    = 5
	MaxEmailLength    = 50
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// FieldError is a single per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Message
}

// ValidateUsername checks the signup username constraint (3-50 chars).
func ValidateUsername(username string) *FieldError {
	username = strings.TrimSpace(username)
	if len(username) < MinUsernameLength {
		return &FieldError{Field: "username", Message: "Username must be at least 3 characters"}
	}
	if len(username) > MaxUsernameLength {
		return &FieldError{Field: "username", Message: "Username must be at most 50 characters"}
	}
	return nil
}

// ValidateEmail checks the signup email constraint (valid form, 5-50 chars).
func ValidateEmail(email string) *FieldError {
	email = strings.TrimSpace(email)
	if len(email) < MinEmailLength {
		return &FieldError{Field: "email", Message: "Email must be at least 5 characters"}
	}
	if len(email) > MaxEmailLength {
		return &FieldError{Field: "email", Message: "Email must be at most 50 characters"}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return &FieldError{Field: "email", Message: "Email is not valid"}
	}
	return nil
}

// ValidatePassword checks the signup password constraint: 8-128 chars with
// at least one uppercase letter, one lowercase letter, one digit, and one
// symbol.
func ValidatePassword(password string) *FieldError {
	if len(password) < MinPasswordLength {
		return &FieldError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	if len(password) > MaxPasswordLength {
		return &FieldError{Field: "password", Message: "Password must be at most 128 characters"}
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return &FieldError{
			Field:   "password",
			Message: "Password must include uppercase, lowercase, number, and special character",
		}
	}
	return nil
}

// ValidateSignup validates the full signup triple and returns every failing
// field, not just the first.
func ValidateSignup(username, email, password string) []FieldError {
	var errs []FieldError
	if err := ValidateUsername(username); err != nil {
		errs = append(errs, *err)
	}
	if err := ValidateEmail(email); err != nil {
		errs = append(errs, *err)
	}
	if err := ValidatePassword(password); err != nil {
		errs = append(errs, *err)
	}
	return errs
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
