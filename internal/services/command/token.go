package command

import (
	"crypto/rand"
	"encoding/hex"
)

// newInviteToken returns a 24-byte (48 hex char) random token for a
// supplier invite's public portal URL, grounded on the teacher's
// tests/helpers.RandHex pattern but using crypto/rand directly since this
// token is security-sensitive rather than test fixture data.
func newInviteToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
