package credentials

import (
	"unicode"

	"pharma-crm/internal/core"
)

// ValidatePassword enforces the password policy for every reset path,
// admin-issued and self-service alike: at least 8 characters with an
// upper-case letter, a lower-case letter, a digit and a symbol.
func ValidatePassword(plaintext string) error {
	if len(plaintext) < 8 {
		return &core.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}

	var upper, lower, digit, symbol bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return &core.ValidationError{
			Field:   "password",
			Message: "must contain upper, lower, digit and symbol",
		}
	}
	return nil
}
