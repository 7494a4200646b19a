// Constant-time string comparison for stream key authorization

package main

import (
	"crypto/sha256"
	"crypto/subtle"
)

// SecureCompareStrings compares two strings without leaking timing
// information about where they first differ. Both inputs are hashed with
// SHA-256 before comparison so that even their lengths do not produce an
// early exit: the digest is fixed-size regardless of input length.
func SecureCompareStrings(a, b string) bool {
	ah := sha256.Sum256([]byte(a))
	bh := sha256.Sum256([]byte(b))

	return subtle.ConstantTimeCompare(ah[:], bh[:]) == 1
}
