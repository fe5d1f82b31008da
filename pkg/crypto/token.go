package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// FingerprintLength is the number of hex characters Fingerprint keeps.
const FingerprintLength = 16

// HashToken returns the hex SHA-256 of a credential. Raw credentials never
// leave the session; anything that needs to key on "who is asking" (cache
// namespaces, log lines) uses the hash.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Fingerprint is a short HashToken, stable per credential. The empty
// credential maps to "anon".
func Fingerprint(token string) string {
	if token == "" {
		return "anon"
	}
	return HashToken(token)[:FingerprintLength]
}

// SameToken compares two credentials in constant time.
func SameToken(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(a)), []byte(HashToken(b))) == 1
}
