package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)
)

// SanitizeEmail trims, lowercases and validates an email address
func SanitizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return "", errors.New("invalid email format")
	}
	return email, nil
}

// SanitizePhone strips spaces and dashes and requires exactly 10 digits
func SanitizePhone(phone string) (string, error) {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if !phoneRegex.MatchString(phone) {
		return "", errors.New("phone number must be exactly 10 digits")
	}
	return phone, nil
}

// SanitizeName trims a display name and collapses inner whitespace
func SanitizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
