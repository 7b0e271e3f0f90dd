package domain

import dErrors "veil/pkg/domain-errors"

// Purpose identifies why data is processed. Purpose binding allows selective
// consent and selective revocation without affecting other flows.
type Purpose string

const (
	PurposeMarketing        Purpose = "marketing"
	PurposeAnalytics        Purpose = "analytics"
	PurposeServiceProvision Purpose = "service_provision"
	PurposeSecurity         Purpose = "security"
	PurposeResearch         Purpose = "research"
	PurposeLegal            Purpose = "legal"
)

var validPurposes = map[Purpose]bool{
	PurposeMarketing:        true,
	PurposeAnalytics:        true,
	PurposeServiceProvision: true,
	PurposeSecurity:         true,
	PurposeResearch:         true,
	PurposeLegal:            true,
}

// ParsePurpose constructs a Purpose from external input.
//
// Usage: call from handlers/adapters when parsing requests.
func ParsePurpose(s string) (Purpose, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "purpose cannot be empty")
	}
	p := Purpose(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid purpose")
	}
	return p, nil
}

// IsValid checks if the purpose is one of the supported enum values.
func (p Purpose) IsValid() bool {
	return validPurposes[p]
}

func (p Purpose) String() string {
	return string(p)
}
