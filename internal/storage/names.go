package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SafeName maps an arbitrary identifier to a name safe for the filesystem.
// Characters outside [A-Za-z0-9._-] are replaced with '_'; when anything was
// replaced, a short digest of the original is appended so distinct identifiers
// never collide. The mapping is recorded in a Manifest so it stays reversible.
func SafeName(id string) string {
	var b strings.Builder
	changed := false
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
			changed = true
		}
	}
	if !changed {
		return b.String()
	}
	sum := sha256.Sum256([]byte(id))
	return b.String() + "-" + hex.EncodeToString(sum[:4])
}
