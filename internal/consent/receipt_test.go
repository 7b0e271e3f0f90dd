package consent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/domain"
	dErrors "veil/pkg/domain-errors"
)

func TestReceiptSigner(t *testing.T) {
	signer := NewReceiptSigner("k1", "veil-test")
	c := &Consent{
		ConsentID:      "c-1",
		UserID:         "user-1",
		PolicyID:       "pol-1",
		PolicyVersion:  "2.0",
		DataCategories: []domain.DataCategory{domain.CategoryContact},
		Purposes:       []domain.Purpose{domain.PurposeMarketing},
		Timestamp:      time.Now().Truncate(time.Second),
		IsActive:       true,
	}

	t.Run("round trip", func(t *testing.T) {
		receipt, err := signer.Sign(c)
		require.NoError(t, err)

		claims, err := signer.Verify(receipt)
		require.NoError(t, err)
		assert.Equal(t, "c-1", claims.ConsentID)
		assert.Equal(t, "pol-1", claims.PolicyID)
		assert.Equal(t, "veil-test", claims.Issuer)
		assert.Equal(t, c.Timestamp.Unix(), ReceiptTimestamp(claims).Unix())
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		receipt, err := signer.Sign(c)
		require.NoError(t, err)

		_, err = NewReceiptSigner("k2", "veil-test").Verify(receipt)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidConsent))
	})

	t.Run("expired receipt rejected", func(t *testing.T) {
		expired := *c
		past := time.Now().Add(-time.Hour)
		expired.ExpiresAt = &past

		receipt, err := signer.Sign(&expired)
		require.NoError(t, err)

		_, err = signer.Verify(receipt)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidConsent))
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := signer.Verify("not.a.jwt")
		require.Error(t, err)
	})
}
