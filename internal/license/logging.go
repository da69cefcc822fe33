package license

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// maskEmail masks email address for security while preserving domain for analytics
func maskEmail(email string) string {
	if email == "" {
		return ""
	}

	atIndex := strings.Index(email, "@")
	if atIndex == -1 {
		return "****"
	}

	username := email[:atIndex]
	domain := email[atIndex:]

	if len(username) <= 2 {
		return "**" + domain
	}

	return username[:1] + "****" + username[len(username)-1:] + domain
}

// hashToken creates a short hash of the raw token for audit correlation.
// Tokens are bearer secrets and are never logged in full.
func hashToken(token string) string {
	if token == "" {
		return ""
	}
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)[:16]
}

// MaskEmail is the exported form of maskEmail for other packages' logs
func MaskEmail(email string) string {
	return maskEmail(email)
}

// TokenFingerprint is the exported form of hashToken for other packages' logs
func TokenFingerprint(token string) string {
	return hashToken(token)
}
