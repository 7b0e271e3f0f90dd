package consent

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "veil/pkg/domain-errors"
)

// ReceiptClaims are the JWT claims embedded in a signed consent receipt. The
// receipt lets a user (or a later audit) prove what was granted without
// trusting the store.
type ReceiptClaims struct {
	ConsentID     string   `json:"consent_id"`
	UserID        string   `json:"user_id"`
	PolicyID      string   `json:"policy_id"`
	PolicyVersion string   `json:"policy_version"`
	Categories    []string `json:"data_categories_consented"`
	Purposes      []string `json:"purposes_consented"`
	jwt.RegisteredClaims
}

// ReceiptSigner signs and verifies consent receipts with HS256.
type ReceiptSigner struct {
	signingKey []byte
	issuer     string
}

func NewReceiptSigner(signingKey, issuer string) *ReceiptSigner {
	return &ReceiptSigner{signingKey: []byte(signingKey), issuer: issuer}
}

// Sign produces a compact JWT receipt for a grant.
func (s *ReceiptSigner) Sign(c *Consent) (string, error) {
	categories := make([]string, len(c.DataCategories))
	for i, cat := range c.DataCategories {
		categories[i] = cat.String()
	}
	purposes := make([]string, len(c.Purposes))
	for i, p := range c.Purposes {
		purposes[i] = p.String()
	}

	claims := ReceiptClaims{
		ConsentID:     c.ConsentID,
		UserID:        c.UserID,
		PolicyID:      c.PolicyID,
		PolicyVersion: c.PolicyVersion,
		Categories:    categories,
		Purposes:      purposes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(c.Timestamp),
			ID:       c.ConsentID,
		},
	}
	if c.ExpiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*c.ExpiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// Verify parses and validates a receipt, returning its claims.
func (s *ReceiptSigner) Verify(receipt string) (*ReceiptClaims, error) {
	parsed, err := jwt.ParseWithClaims(receipt, &ReceiptClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeInvalidConsent, "receipt has expired")
		}
		return nil, dErrors.New(dErrors.CodeInvalidConsent, "invalid receipt")
	}
	claims, ok := parsed.Claims.(*ReceiptClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidConsent, "invalid receipt")
	}
	return claims, nil
}

// ReceiptTimestamp extracts the issue time from verified claims, useful when
// cross-checking a store record against its receipt.
func ReceiptTimestamp(claims *ReceiptClaims) time.Time {
	if claims == nil || claims.IssuedAt == nil {
		return time.Time{}
	}
	return claims.IssuedAt.Time
}
