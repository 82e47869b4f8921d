package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// DefaultRandomBytes is the byte length used for CSRF tokens and codec keys.
const DefaultRandomBytes = 32

// GenerateSecureRandom returns n random bytes from r, hex-encoded. A nil
// reader falls back to crypto/rand.
func GenerateSecureRandom(r io.Reader, n int) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	if n <= 0 {
		n = DefaultRandomBytes
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
