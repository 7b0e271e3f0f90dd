package httptransport

import (
	"strings"

	"veil/internal/consent"
	"veil/internal/domain"
	"veil/internal/policy"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/strutil"
)

// EnforceRequest is the HTTP request body for POST /enforce.
type EnforceRequest struct {
	UserID        string         `json:"user_id"`
	PolicyID      string         `json:"policy_id"`
	PolicyVersion string         `json:"policy_version,omitempty"`
	Purpose       string         `json:"purpose"`
	ThirdParty    string         `json:"third_party,omitempty"`
	Record        map[string]any `json:"record"`

	// Parsed values (populated by Validate)
	parsedPurpose domain.Purpose
}

// Validate validates and parses the request.
func (r *EnforceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.UserID = strings.TrimSpace(r.UserID)
	if r.UserID == "" {
		return dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	r.PolicyID = strings.TrimSpace(r.PolicyID)
	if r.PolicyID == "" {
		return dErrors.New(dErrors.CodeValidation, "policy_id is required")
	}
	if r.Record == nil {
		return dErrors.New(dErrors.CodeValidation, "record is required")
	}

	purpose, err := domain.ParsePurpose(strings.TrimSpace(r.Purpose))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "unknown purpose: "+r.Purpose)
	}
	r.parsedPurpose = purpose
	return nil
}

// ParsedPurpose returns the purpose parsed by Validate.
func (r *EnforceRequest) ParsedPurpose() domain.Purpose { return r.parsedPurpose }

// SavePolicyRequest is the HTTP request body for POST /policies. The body is
// the policy document itself.
type SavePolicyRequest struct {
	policy.Policy
}

func (r *SavePolicyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ThirdParties = strutil.DedupeAndTrim(r.ThirdParties)
	return r.Policy.Validate()
}

// GrantConsentRequest is the HTTP request body for POST /consents. The body
// is the consent document; consent_id and timestamp default server-side.
type GrantConsentRequest struct {
	consent.Consent
}

func (r *GrantConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ThirdParties = strutil.DedupeAndTrim(r.ThirdParties)
	return r.Consent.Validate()
}

// RevokeConsentRequest is the HTTP request body for POST /consents/revoke.
// An empty consent_id revokes whatever is currently active for the pair.
type RevokeConsentRequest struct {
	UserID    string `json:"user_id"`
	PolicyID  string `json:"policy_id"`
	ConsentID string `json:"consent_id,omitempty"`
}

func (r *RevokeConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	if strings.TrimSpace(r.PolicyID) == "" {
		return dErrors.New(dErrors.CodeValidation, "policy_id is required")
	}
	return nil
}
