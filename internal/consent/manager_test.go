package consent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"veil/internal/domain"
	"veil/pkg/sentinel"
)

type ManagerSuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemoryStore
	manager *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.manager = NewManager(s.store, zap.NewNop())
}

func (s *ManagerSuite) newConsent(id string, ts time.Time) *Consent {
	return s.newConsentFor("user-1", id, ts)
}

func (s *ManagerSuite) newConsentFor(userID, id string, ts time.Time) *Consent {
	return &Consent{
		ConsentID:      id,
		UserID:         userID,
		PolicyID:       "pol-1",
		PolicyVersion:  "1.0",
		DataCategories: []domain.DataCategory{domain.CategoryContact},
		Purposes:       []domain.Purpose{domain.PurposeAnalytics},
		Timestamp:      ts,
		IsActive:       true,
	}
}

func (s *ManagerSuite) TestAdd() {
	s.Run("defaults id and timestamp", func() {
		c := s.newConsent("", time.Time{})
		s.Require().NoError(s.manager.Add(s.ctx, c))
		s.NotEmpty(c.ConsentID)
		s.False(c.Timestamp.IsZero())
		s.True(c.IsActive)
	})

	s.Run("rejects invalid consent", func() {
		c := s.newConsent("c-bad", time.Now())
		c.UserID = ""
		s.Error(s.manager.Add(s.ctx, c))
	})

	s.Run("newer grant supersedes the active one", func() {
		base := time.Now()
		first := s.newConsentFor("user-3", "c-1", base)
		second := s.newConsentFor("user-3", "c-2", base.Add(time.Hour))
		s.Require().NoError(s.manager.Add(s.ctx, first))
		s.Require().NoError(s.manager.Add(s.ctx, second))

		history, err := s.manager.History(s.ctx, "user-3", "pol-1")
		s.Require().NoError(err)
		s.Require().Len(history, 2)

		active := 0
		for _, c := range history {
			if c.IsActive {
				active++
				s.Equal("c-2", c.ConsentID)
			}
		}
		s.Equal(1, active)
	})
}

func (s *ManagerSuite) TestActiveConsent() {
	s.Run("returns the newest active grant", func() {
		base := time.Now().Add(-2 * time.Hour)
		s.Require().NoError(s.manager.Add(s.ctx, s.newConsent("c-1", base)))
		s.Require().NoError(s.manager.Add(s.ctx, s.newConsent("c-2", base.Add(time.Hour))))

		active, err := s.manager.ActiveConsent(s.ctx, "user-1", "pol-1")
		s.Require().NoError(err)
		s.Equal("c-2", active.ConsentID)
	})

	s.Run("expired newest falls back to older active grant", func() {
		base := time.Now().Add(-2 * time.Hour)
		older := s.newConsentFor("user-2", "c-old", base)
		s.Require().NoError(s.manager.Add(s.ctx, older))

		expiry := time.Now().Add(-time.Minute)
		newer := s.newConsentFor("user-2", "c-new", base.Add(time.Hour))
		newer.ExpiresAt = &expiry
		// Save directly: Add would deactivate the older grant.
		s.Require().NoError(s.store.Save(s.ctx, newer))

		active, err := s.manager.ActiveConsent(s.ctx, "user-2", "pol-1")
		s.Require().NoError(err)
		s.Equal("c-old", active.ConsentID)
	})

	s.Run("no grant at all", func() {
		_, err := s.manager.ActiveConsent(s.ctx, "ghost", "pol-1")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ManagerSuite) TestRevoke() {
	s.Run("revokes by id", func() {
		s.Require().NoError(s.manager.Add(s.ctx, s.newConsent("c-1", time.Now())))
		s.Require().NoError(s.manager.Revoke(s.ctx, "user-1", "pol-1", "c-1"))

		_, err := s.manager.ActiveConsent(s.ctx, "user-1", "pol-1")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("empty id revokes the current active grant", func() {
		s.Require().NoError(s.manager.Add(s.ctx, s.newConsent("c-1", time.Now())))
		s.Require().NoError(s.manager.Revoke(s.ctx, "user-1", "pol-1", ""))

		_, err := s.manager.ActiveConsent(s.ctx, "user-1", "pol-1")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unknown id", func() {
		err := s.manager.Revoke(s.ctx, "user-1", "pol-1", "nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ManagerSuite) TestReceiptSigning() {
	signer := NewReceiptSigner("test-signing-key", "veil-test")
	manager := NewManager(s.store, zap.NewNop(), WithReceiptSigner(signer))

	c := s.newConsent("c-signed", time.Now())
	s.Require().NoError(manager.Add(s.ctx, c))
	s.Require().NotEmpty(c.Signature)

	claims, err := signer.Verify(c.Signature)
	s.Require().NoError(err)
	s.Equal("c-signed", claims.ConsentID)
	s.Equal("user-1", claims.UserID)
	s.Equal([]string{"contact"}, claims.Categories)
	s.Equal([]string{"analytics"}, claims.Purposes)
}
