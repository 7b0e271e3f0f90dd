package evaluate

import (
	"veil/internal/consent"
	"veil/internal/domain"
	"veil/internal/policy"
)

// Evaluator decides whether an operation on a set of attributes is permitted
// under a policy and a consent. It is pure domain logic - no I/O, no side
// effects, and it never panics on malformed input: anything it cannot
// interpret is a deny.
type Evaluator struct {
	consentExemptBases map[domain.LegalBasis]bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithConsentExemptBases enables the non-consent legal-basis carve-out: a
// policy whose legal basis is listed here permits its declared purposes even
// without an active consent. Off by default; consent remains required for
// everything else.
func WithConsentExemptBases(bases ...domain.LegalBasis) Option {
	return func(e *Evaluator) {
		for _, b := range bases {
			e.consentExemptBases[b] = true
		}
	}
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{consentExemptBases: make(map[domain.LegalBasis]bool)}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Permitted applies the rule chain in order, all of which must hold
// (fail-fast):
//  1. The purpose is declared by the policy.
//  2. Every attribute category is declared by the policy.
//  3. An active consent exists.
//  4. Every attribute category is consented.
//  5. The purpose is consented.
//  6. The third party, when given, is consented (explicitly or via wildcard).
//
// Rules 3-6 are skipped for policies on a consent-exempt legal basis when
// that extension is enabled.
func (e *Evaluator) Permitted(
	p *policy.Policy,
	c *consent.Consent,
	attributes []domain.DataAttribute,
	purpose domain.Purpose,
	thirdParty string,
) bool {
	if p == nil || !purpose.IsValid() {
		return false
	}

	// Rule 1: purpose declared by policy.
	if !p.CoversPurpose(purpose) {
		return false
	}

	// Rule 2: every attribute category declared by policy.
	for _, attr := range attributes {
		if !attr.Category.IsValid() || !p.CoversCategory(attr.Category) {
			return false
		}
	}

	if e.consentExemptBases[p.LegalBasis] {
		return true
	}

	// Rule 3: active consent present.
	if c == nil || !c.IsActive {
		return false
	}

	// Rule 4: every attribute category consented.
	for _, attr := range attributes {
		if !c.CoversCategory(attr.Category) {
			return false
		}
	}

	// Rule 5: purpose consented.
	if !c.CoversPurpose(purpose) {
		return false
	}

	// Rule 6: third party consented when one is named.
	if thirdParty != "" && !c.CoversThirdParty(thirdParty) {
		return false
	}

	return true
}
