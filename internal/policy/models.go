package policy

import (
	"time"

	"veil/internal/domain"
	dErrors "veil/pkg/domain-errors"
)

// Policy is an immutable, versioned declaration of what a controller may do
// with data: which categories it touches, for which purposes, shared with
// which third parties, and on what legal basis.
//
// Invariant: once persisted, a (PolicyID, Version) pair never changes. Any
// amendment is a new version.
type Policy struct {
	PolicyID       string                `json:"policy_id"`
	Version        string                `json:"version"`
	DataCategories []domain.DataCategory `json:"data_categories"`
	Purposes       []domain.Purpose      `json:"purposes"`
	Retention      time.Duration         `json:"retention_period"`
	ThirdParties   []string              `json:"third_parties_shared_with,omitempty"`
	LegalBasis     domain.LegalBasis     `json:"legal_basis"`
	TextSummary    string                `json:"text_summary,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Validate checks the fields a store requires before persisting.
func (p *Policy) Validate() error {
	if p == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "policy is nil")
	}
	if p.PolicyID == "" {
		return dErrors.New(dErrors.CodeValidation, "policy_id cannot be empty")
	}
	if p.Version == "" {
		return dErrors.New(dErrors.CodeValidation, "version cannot be empty")
	}
	for _, c := range p.DataCategories {
		if !c.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "invalid data category: "+c.String())
		}
	}
	for _, pu := range p.Purposes {
		if !pu.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "invalid purpose: "+pu.String())
		}
	}
	if p.LegalBasis != "" && !p.LegalBasis.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid legal basis: "+p.LegalBasis.String())
	}
	return nil
}

// CoversCategory reports whether the policy declares the given category.
func (p *Policy) CoversCategory(c domain.DataCategory) bool {
	for _, dc := range p.DataCategories {
		if dc == c {
			return true
		}
	}
	return false
}

// CoversPurpose reports whether the policy declares the given purpose.
func (p *Policy) CoversPurpose(pu domain.Purpose) bool {
	for _, pp := range p.Purposes {
		if pp == pu {
			return true
		}
	}
	return false
}
