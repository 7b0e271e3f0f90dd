package obfuscate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Sentinels returned by the constant transforms. They are part of the public
// contract: downstream consumers match on them.
const (
	RedactedSentinel   = "[REDACTED]"
	AggregatedSentinel = "[AGGREGATED]"
)

// maskVisible is how many trailing characters Mask leaves readable.
const maskVisible = 4

// canonical renders a value into the stable string form the Hash transform
// digests. JSON keeps scalars and composites deterministic; anything JSON
// cannot express falls back to fmt.
func canonical(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Redact replaces any value with a fixed sentinel, independent of input.
func Redact(_ any) any {
	return RedactedSentinel
}

// Hash replaces a value with a stable hex digest: the same input always maps
// to the same output, and any change to the input changes the output.
func Hash(v any) any {
	sum := sha256.Sum256([]byte(canonical(v)))
	return hex.EncodeToString(sum[:])
}

// Tokenize replaces a value with a fresh opaque handle. The handle is not
// derivable from the input; repeated calls on the same input differ.
func Tokenize(_ any) any {
	return "tok_" + uuid.NewString()
}

// Mask reveals the last maskVisible characters and fills the rest with '*'.
// Inputs no longer than maskVisible are fully masked so a short value never
// leaks in its entirety.
func Mask(v any) any {
	s := fmt.Sprintf("%v", v)
	runes := []rune(s)
	masked := make([]rune, len(runes))
	for i := range masked {
		masked[i] = '*'
	}
	if len(runes) > maskVisible {
		copy(masked[len(runes)-maskVisible:], runes[len(runes)-maskVisible:])
	}
	return string(masked)
}

// Aggregate replaces a value with a sentinel meaning "not individually
// resolvable".
func Aggregate(_ any) any {
	return AggregatedSentinel
}
