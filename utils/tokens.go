package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const invitationTokenBytes = 32 // 256 bits of entropy

// GenerateInvitationToken returns a URL-safe random token for invitation links.
func GenerateInvitationToken() (string, error) {
	b := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}
