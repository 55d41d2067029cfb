package cryptoutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Digest returns the SHA-256 of data. Published documents are addressed by
// its hex form.
func Digest(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}

// SHA256Hex is the lowercase hex encoding of Digest(data).
func SHA256Hex(data []byte) string {
	d := Digest(data)
	return hex.EncodeToString(d[:])
}

// HashEqual compares two hex hashes in constant time, ignoring case and
// surrounding whitespace (SSM values are sometimes edited by hand).
func HashEqual(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
