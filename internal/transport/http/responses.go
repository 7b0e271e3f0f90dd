package httptransport

// EnforceResponse is the HTTP response for POST /enforce.
type EnforceResponse struct {
	Record map[string]any `json:"record"`
	Status string         `json:"status"`
}

// VersionsResponse lists a policy's versions newest-first.
type VersionsResponse struct {
	PolicyID string   `json:"policy_id"`
	Versions []string `json:"versions"`
}

// VerifyResponse is the HTTP response for GET /audit/verify.
type VerifyResponse struct {
	Valid           bool   `json:"valid"`
	EntriesVerified int    `json:"entries_verified"`
	Error           string `json:"error,omitempty"`
}

// GrantConsentResponse returns the stored consent's identifiers and, when
// receipt signing is configured, the signed receipt.
type GrantConsentResponse struct {
	ConsentID string `json:"consent_id"`
	Signature string `json:"signature,omitempty"`
}
