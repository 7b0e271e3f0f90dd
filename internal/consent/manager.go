package consent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dErrors "veil/pkg/domain-errors"
	"veil/pkg/sentinel"
)

// Manager wraps a Store with the active-consent rules: a new grant supersedes
// older active grants for the same (user, policy), revocation deactivates, and
// expiration is applied lazily at read time. It keeps orchestration out of the
// enforcer and domain logic thin.
type Manager struct {
	store  Store
	signer *ReceiptSigner
	log    *zap.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithReceiptSigner makes the manager sign each grant into a JWT receipt
// stored in Consent.Signature.
func WithReceiptSigner(signer *ReceiptSigner) ManagerOption {
	return func(m *Manager) { m.signer = signer }
}

func NewManager(store Store, log *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, log: log}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Add persists a new grant, deactivating every currently-active consent for
// the same (user, policy) whose timestamp is not newer than the grant's.
func (m *Manager) Add(ctx context.Context, c *Consent) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ConsentID == "" {
		c.ConsentID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	c.IsActive = true

	existing, err := m.store.ListByUserPolicy(ctx, c.UserID, c.PolicyID)
	if err != nil {
		return err
	}
	for _, prior := range existing {
		if prior.ConsentID == c.ConsentID || !prior.IsActive {
			continue
		}
		if prior.Timestamp.After(c.Timestamp) {
			continue
		}
		prior.IsActive = false
		if err := m.store.Save(ctx, prior); err != nil {
			return err
		}
		m.log.Info("consent superseded",
			zap.String("user_id", c.UserID),
			zap.String("policy_id", c.PolicyID),
			zap.String("superseded_consent_id", prior.ConsentID),
			zap.String("consent_id", c.ConsentID))
	}

	if m.signer != nil {
		sig, err := m.signer.Sign(c)
		if err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "sign consent receipt", err)
		}
		c.Signature = sig
	}

	return m.store.Save(ctx, c)
}

// ActiveConsent resolves "the" active consent for (user, policy): the newest
// active non-expired record. An expired newest record degrades gracefully to
// the next-newest active non-expired one; expiration never raises.
func (m *Manager) ActiveConsent(ctx context.Context, userID, policyID string) (*Consent, error) {
	consents, err := m.store.ListByUserPolicy(ctx, userID, policyID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, c := range consents {
		if c.ActiveAt(now) {
			return c, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Revoke deactivates the named consent, or whatever is currently active for
// (user, policy) when consentID is empty.
func (m *Manager) Revoke(ctx context.Context, userID, policyID, consentID string) error {
	var target *Consent
	if consentID != "" {
		consents, err := m.store.ListByUserPolicy(ctx, userID, policyID)
		if err != nil {
			return err
		}
		for _, c := range consents {
			if c.ConsentID == consentID {
				target = c
				break
			}
		}
		if target == nil {
			return sentinel.ErrNotFound
		}
	} else {
		active, err := m.ActiveConsent(ctx, userID, policyID)
		if err != nil {
			return err
		}
		target = active
	}

	target.IsActive = false
	if err := m.store.Save(ctx, target); err != nil {
		return err
	}
	m.log.Info("consent revoked",
		zap.String("user_id", userID),
		zap.String("policy_id", policyID),
		zap.String("consent_id", target.ConsentID))
	return nil
}

// History returns the full ordered record for (user, policy): active,
// inactive, and expired grants alike, newest-first. Audit flows need the
// complete picture.
func (m *Manager) History(ctx context.Context, userID, policyID string) ([]*Consent, error) {
	return m.store.ListByUserPolicy(ctx, userID, policyID)
}

// AllForUser returns every consent a user holds across policies.
func (m *Manager) AllForUser(ctx context.Context, userID string) ([]*Consent, error) {
	return m.store.ListByUser(ctx, userID)
}
