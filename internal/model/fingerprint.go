package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Fingerprint returns a stable SHA3-256 hex digest of the given fields.
// Fields are joined with a NUL separator so that ("ab", "c") and ("a", "bc")
// produce different digests.
func Fingerprint(fields ...string) string {
	sum := sha3.Sum256([]byte(strings.Join(fields, "\x00")))
	return hex.EncodeToString(sum[:])
}
