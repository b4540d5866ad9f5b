// Package checksum fingerprints archived export files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether data hashes to sum. An empty sum never matches.
func Matches(data []byte, sum string) bool {
	return sum != "" && strings.EqualFold(Sum(data), sum)
}
