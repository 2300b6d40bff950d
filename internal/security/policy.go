package security

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
)

const PasswordMinLength = 8

const passwordSpecials = "!@#$%^&*()"

var (
	ErrWeakPassword = errors.New("password must be at least 8 characters and contain upper and lower case letters, a digit and one of !@#$%^&*()")
	ErrInvalidEmail = errors.New("invalid email format")
)

// CheckPasswordStrength enforces the signup password policy.
func CheckPasswordStrength(password string) error {
	if len(password) < PasswordMinLength {
		return ErrWeakPassword
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return ErrWeakPassword
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return ErrWeakPassword
		}
	}

	if !lower || !upper || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}

// NormalizeEmail trims and lower-cases email; uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}
