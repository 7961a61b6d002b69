package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

func generateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// ValidateID reports whether the identifier has the 32-character lowercase hex
// shape this package generates.
func ValidateID(id string) error {
	if len(id) != 32 {
		return ErrInvalidID
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return ErrInvalidID
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
