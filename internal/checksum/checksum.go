// Package checksum digests content files so unchanged sources can be
// recognised without re-parsing.
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

// Scoped returns Sum(data) prefixed with scope, colon-separated. Two files
// with equal content but different scopes never share a key.
func Scoped(data []byte, scope ...string) string {
	if len(scope) == 0 {
		return Sum(data)
	}
	return strings.Join(scope, ":") + ":" + Sum(data)
}
