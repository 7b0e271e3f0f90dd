package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// EventType labels what kind of decision an entry records.
const (
	EventEnforcementDecision = "enforcement_decision"
	EventConsentGranted      = "consent_granted"
	EventConsentRevoked      = "consent_revoked"
)

// FieldTransformation records what happened to one field. A slice of structs
// (not a map) keeps json.Marshal deterministic for reproducible hashing.
type FieldTransformation struct {
	Key    string `json:"key"`
	Method string `json:"method"`
}

// Entry is one line in the hash-chained audit log. Every field except
// CurrentEntryHash is covered by the hash; PreviousLogHash links each entry
// to its predecessor, empty for the first entry ever written. Entries are
// append-only and never mutated.
//
// Data hashes stand in for record contents: the log never stores raw values.
type Entry struct {
	EventID          string                `json:"event_id"`
	Timestamp        time.Time             `json:"timestamp"`
	EventType        string                `json:"event_type"`
	UserID           string                `json:"user_id"`
	PolicyID         string                `json:"policy_id"`
	PolicyVersion    string                `json:"policy_version"`
	ConsentID        string                `json:"consent_id,omitempty"`
	InputDataHash    string                `json:"input_data_hash"`
	OutputDataHash   string                `json:"output_data_hash"`
	Transformations  []FieldTransformation `json:"transformation_details,omitempty"`
	Status           string                `json:"status"`
	PreviousLogHash  string                `json:"previous_log_hash"`
	CurrentEntryHash string                `json:"current_entry_hash"`
}

// computeHash digests the canonical JSON of the entry with its own hash field
// cleared.
func computeHash(e Entry) string {
	e.CurrentEntryHash = ""
	data, err := json.Marshal(e)
	if err != nil {
		// Entry is all plain values; Marshal cannot fail in practice, but a
		// deterministic non-empty digest keeps the chain walkable regardless.
		data = []byte(e.EventID)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashRecord digests a whole data record for the input/output hash fields.
func HashRecord(record map[string]any) string {
	data, err := json.Marshal(record)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
