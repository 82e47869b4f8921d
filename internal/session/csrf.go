package session

import (
	"crypto/rand"
	"io"

	"github.com/brainboard/brainboard/internal/security"
)

var cryptoReader io.Reader = rand.Reader

// CSRFHeader carries the anti-forgery token on every request.
const CSRFHeader = "X-CSRF-Token"

// NewCSRFToken returns 32 random bytes from r, hex-encoded.
func NewCSRFToken(r io.Reader) (string, error) {
	if r == nil {
		r = cryptoReader
	}
	return security.GenerateSecureRandom(r, security.DefaultRandomBytes)
}
