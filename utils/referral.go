package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// VendorReferralPrefix prefixes every vendor referral code.
const VendorReferralPrefix = "VEN"

// GenerateReferralCode generates a referral code with the given prefix.
// Format: {PREFIX}-{RANDOM} where RANDOM is 6 uppercase alphanumeric characters
// Example: VEN-ABC123
func GenerateReferralCode(prefix string) (string, error) {
	// 4 random bytes give at least 6 base32 characters
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	return prefix + "-" + strings.ToUpper(randomStr[:6]), nil
}

// GenerateVendorReferralCode generates a referral code for a vendor
func GenerateVendorReferralCode() (string, error) {
	return GenerateReferralCode(VendorReferralPrefix)
}

// NormalizeReferralCode uppercases and trims a code typed by a user
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
