package utils

import (
	"crypto/sha256"
	"fmt"
)

// HashString returns a short stable hex digest, used for cache and
// idempotency keys.
func HashString(input string) string {
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", sum[:12])
}

// HashPair hashes two strings with a separator so that ("ab","c") and
// ("a","bc") produce different keys.
func HashPair(a, b string) string {
	return HashString(a + "\x1f" + b)
}
