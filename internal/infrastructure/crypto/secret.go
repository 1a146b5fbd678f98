// Package crypto provides the credential primitives of the security core:
// secret generation, hashing, syntactic validation, and constant-time
// comparison.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/courierd/courierd/pkg/constants"
)

// GenerateSecret returns a fresh plaintext credential: 32 bytes from the
// CSPRNG, URL-safe base64 without padding (43 characters).
func GenerateSecret() (string, error) {
	buf := make([]byte, constants.APIKeySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret returns the hex-encoded SHA-256 digest of the plaintext.
// The digest is deterministic and unsalted: lookup is by exact digest
// equality, trading offline-dictionary resistance for O(1) retrieval. That is
// acceptable for a 256-bit random secret.
func HashSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ValidFormat reports whether the candidate is syntactically a credential:
// exact encoded length and base64url alphabet only. It runs before any
// hashing or storage I/O so garbage input is rejected without cost.
func ValidFormat(candidate string) bool {
	if len(candidate) != constants.APIKeyEncodedLength {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// ConstantTimeEqual compares two digests without leaking timing information.
// Mismatched lengths return false immediately; digest lengths are not secret.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
