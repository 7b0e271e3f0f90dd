package domain

// EnforcementStatus is the closed set of outcomes a single enforcement pass
// can report. The processed record always keeps the input's shape regardless
// of status.
type EnforcementStatus string

const (
	// StatusAllowedRaw: every field passed through unchanged.
	StatusAllowedRaw EnforcementStatus = "allowed_raw"
	// StatusAllowedTransformed: at least one field was obfuscated.
	StatusAllowedTransformed EnforcementStatus = "allowed_transformed"
	// StatusPolicyNotFound: the named policy/version does not exist; every
	// field was fallback-obfuscated.
	StatusPolicyNotFound EnforcementStatus = "policy_not_found"
	// StatusNoActiveConsent: no active consent for (user, policy); every
	// field was denied and transformed.
	StatusNoActiveConsent EnforcementStatus = "no_active_consent"
	// StatusEnforcementError: an internal stage failed; the caller received a
	// best-effort fallback-obfuscated record.
	StatusEnforcementError EnforcementStatus = "enforcement_error"
)

func (s EnforcementStatus) String() string {
	return string(s)
}
