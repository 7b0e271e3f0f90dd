package consent

import (
	"time"

	"veil/internal/domain"
	dErrors "veil/pkg/domain-errors"
)

// ThirdPartyWildcard in a consent's third-party list grants sharing with any
// recipient.
const ThirdPartyWildcard = "*"

// Consent captures one grant by a user under a specific policy version: which
// categories and purposes are consented, and to which third parties data may
// flow.
//
// Invariant: at most one record per (user_id, policy_id) is active at any
// instant. The manager deactivates superseded grants on insert; expiration is
// checked lazily at read time.
type Consent struct {
	ConsentID      string                `json:"consent_id"`
	UserID         string                `json:"user_id"`
	PolicyID       string                `json:"policy_id"`
	PolicyVersion  string                `json:"policy_version"`
	DataCategories []domain.DataCategory `json:"data_categories_consented"`
	Purposes       []domain.Purpose      `json:"purposes_consented"`
	ThirdParties   []string              `json:"third_parties_consented,omitempty"`
	Timestamp      time.Time             `json:"timestamp"`
	IsActive       bool                  `json:"is_active"`
	ExpiresAt      *time.Time            `json:"expires_at,omitempty"`
	Signature      string                `json:"signature,omitempty"`
}

// Validate checks the fields a store requires before persisting.
func (c *Consent) Validate() error {
	if c == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "consent is nil")
	}
	if c.UserID == "" {
		return dErrors.New(dErrors.CodeValidation, "user_id cannot be empty")
	}
	if c.PolicyID == "" {
		return dErrors.New(dErrors.CodeValidation, "policy_id cannot be empty")
	}
	for _, cat := range c.DataCategories {
		if !cat.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "invalid data category: "+cat.String())
		}
	}
	for _, p := range c.Purposes {
		if !p.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "invalid purpose: "+p.String())
		}
	}
	return nil
}

// Expired reports whether the consent has passed its expiry instant. A nil
// ExpiresAt means the grant does not expire.
func (c *Consent) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// ActiveAt returns true when the consent is currently valid: not revoked and
// not expired.
func (c *Consent) ActiveAt(now time.Time) bool {
	return c.IsActive && !c.Expired(now)
}

// CoversCategory reports whether the grant includes the given category.
func (c *Consent) CoversCategory(cat domain.DataCategory) bool {
	for _, dc := range c.DataCategories {
		if dc == cat {
			return true
		}
	}
	return false
}

// CoversPurpose reports whether the grant includes the given purpose.
func (c *Consent) CoversPurpose(p domain.Purpose) bool {
	for _, cp := range c.Purposes {
		if cp == p {
			return true
		}
	}
	return false
}

// CoversThirdParty reports whether sharing with the given recipient is
// consented, either explicitly or through the wildcard.
func (c *Consent) CoversThirdParty(tp string) bool {
	for _, t := range c.ThirdParties {
		if t == tp || t == ThirdPartyWildcard {
			return true
		}
	}
	return false
}
