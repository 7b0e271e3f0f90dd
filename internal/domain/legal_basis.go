package domain

import dErrors "veil/pkg/domain-errors"

// LegalBasis is the lawful ground a policy claims for processing. Only
// BasisConsent is fully modeled by the evaluator; the others are an explicit
// opt-in extension (see the evaluate package).
type LegalBasis string

const (
	BasisConsent            LegalBasis = "consent"
	BasisContract           LegalBasis = "contract"
	BasisLegalObligation    LegalBasis = "legal_obligation"
	BasisVitalInterest      LegalBasis = "vital_interest"
	BasisPublicInterest     LegalBasis = "public_interest"
	BasisLegitimateInterest LegalBasis = "legitimate_interest"
)

var validLegalBases = map[LegalBasis]bool{
	BasisConsent:            true,
	BasisContract:           true,
	BasisLegalObligation:    true,
	BasisVitalInterest:      true,
	BasisPublicInterest:     true,
	BasisLegitimateInterest: true,
}

// ParseLegalBasis constructs a LegalBasis from external input.
func ParseLegalBasis(s string) (LegalBasis, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "legal basis cannot be empty")
	}
	b := LegalBasis(s)
	if !b.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid legal basis")
	}
	return b, nil
}

func (b LegalBasis) IsValid() bool {
	return validLegalBases[b]
}

func (b LegalBasis) String() string {
	return string(b)
}
