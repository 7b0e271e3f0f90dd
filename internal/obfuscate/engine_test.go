package obfuscate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"veil/internal/classify"
	"veil/internal/consent"
	"veil/internal/domain"
	"veil/internal/evaluate"
	"veil/internal/policy"
)

type EngineSuite struct {
	suite.Suite
	ctx        context.Context
	classifier *classify.Classifier
	engine     *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.classifier = classify.New()
	s.engine = NewEngine(s.classifier, evaluate.New(), zap.NewNop())
}

func (s *EngineSuite) newPolicy(cats ...domain.DataCategory) *policy.Policy {
	return &policy.Policy{
		PolicyID:       "pol-1",
		Version:        "1.0",
		DataCategories: cats,
		Purposes:       []domain.Purpose{domain.PurposeAnalytics},
		LegalBasis:     domain.BasisConsent,
		CreatedAt:      time.Now(),
	}
}

func (s *EngineSuite) newConsent(cats ...domain.DataCategory) *consent.Consent {
	return &consent.Consent{
		ConsentID:      "con-1",
		UserID:         "user-1",
		PolicyID:       "pol-1",
		DataCategories: cats,
		Purposes:       []domain.Purpose{domain.PurposeAnalytics},
		Timestamp:      time.Now(),
		IsActive:       true,
	}
}

func (s *EngineSuite) TestFullyPermittedPassesRawValues() {
	record := map[string]any{"email": "a@example.com", "name": "Ada"}
	cats := []domain.DataCategory{domain.CategoryContact, domain.CategoryPersonalInfo}

	out, decisions, err := s.engine.Process(s.ctx, record,
		s.newPolicy(cats...), s.newConsent(cats...), domain.PurposeAnalytics, "")
	s.Require().NoError(err)
	s.Equal(record, out)
	for _, d := range decisions {
		s.True(d.Permitted, d.Key)
	}
}

func (s *EngineSuite) TestMixedDecisionTransformsOnlyDeniedFields() {
	record := map[string]any{"email": "a@example.com", "name": "Ada"}
	cats := []domain.DataCategory{domain.CategoryContact, domain.CategoryPersonalInfo}

	// Consent covers contact only; name (personal_info) is denied.
	out, decisions, err := s.engine.Process(s.ctx, record,
		s.newPolicy(cats...), s.newConsent(domain.CategoryContact), domain.PurposeAnalytics, "")
	s.Require().NoError(err)

	s.Equal("a@example.com", out["email"])
	s.Equal(RedactedSentinel, out["name"])

	byKey := map[string]FieldDecision{}
	for _, d := range decisions {
		byKey[d.Key] = d
	}
	s.True(byKey["email"].Permitted)
	s.False(byKey["name"].Permitted)
	s.Equal(domain.ObfuscateRedact, byKey["name"].Method)
}

func (s *EngineSuite) TestShapePreserved() {
	record := map[string]any{
		"user": map[string]any{
			"details": map[string]any{"email": "a@example.com"},
			"phones":  []any{"555-0100", "555-0101"},
		},
		"note": "hello",
	}

	out, _, err := s.engine.ObfuscateAll(s.ctx, record)
	s.Require().NoError(err)

	user, ok := out["user"].(map[string]any)
	s.Require().True(ok)
	details, ok := user["details"].(map[string]any)
	s.Require().True(ok)
	phones, ok := user["phones"].([]any)
	s.Require().True(ok)
	s.Len(phones, 2)

	// email hashes, phones mask, the unclassified note redacts
	digest, ok := details["email"].(string)
	s.Require().True(ok)
	s.Len(digest, 64)
	s.Equal("****0100", phones[0])
	s.Equal(RedactedSentinel, out["note"])
}

func (s *EngineSuite) TestDottedLiteralKeyStaysIndependent() {
	// A literal "a.b" key and a nested a→b render the same compound key; the
	// leaves must still be decided and rebuilt independently.
	record := map[string]any{
		"a.b": "literal-value",
		"a":   map[string]any{"b": "nested-value"},
	}

	s.Run("fully permitted record round-trips", func() {
		out, decisions, err := s.engine.Process(s.ctx, record,
			s.newPolicy(domain.CategoryOther), s.newConsent(domain.CategoryOther),
			domain.PurposeAnalytics, "")
		s.Require().NoError(err)
		s.Equal(record, out)
		s.Len(decisions, 2)
	})

	s.Run("denied values land in their own leaves", func() {
		s.classifier.Register("a.b", domain.NewDataAttribute(
			"a.b", domain.CategoryOther, domain.SensitivityLow, domain.ObfuscateHash))

		out, _, err := s.engine.ObfuscateAll(s.ctx, record)
		s.Require().NoError(err)
		s.Equal(Hash("literal-value"), out["a.b"])
		nested, ok := out["a"].(map[string]any)
		s.Require().True(ok)
		s.Equal(Hash("nested-value"), nested["b"])
	})
}

func (s *EngineSuite) TestMisalignedClassifierFailsInsteadOfCorrupting() {
	dropping := droppingClassifier{inner: s.classifier}
	engine := NewEngine(dropping, evaluate.New(), zap.NewNop())

	_, _, err := engine.ObfuscateAll(s.ctx, map[string]any{"email": "a@example.com", "name": "Ada"})
	s.Error(err)
}

// droppingClassifier loses its last leaf, violating the one-entry-per-leaf
// contract.
type droppingClassifier struct {
	inner *classify.Classifier
}

func (d droppingClassifier) Classify(record map[string]any) []classify.Classified {
	fields := d.inner.Classify(record)
	return fields[:len(fields)-1]
}

func (s *EngineSuite) TestNonePreferenceNeverLeaksOnDeny() {
	s.classifier.Register("nickname", domain.NewDataAttribute(
		"nickname", domain.CategoryPersonalInfo, domain.SensitivityLow, domain.ObfuscateNone))

	out, decisions, err := s.engine.ObfuscateAll(s.ctx, map[string]any{"nickname": "adder"})
	s.Require().NoError(err)
	s.Equal(RedactedSentinel, out["nickname"])
	s.Require().Len(decisions, 1)
	s.Equal(domain.ObfuscateRedact, decisions[0].Method)
}

func (s *EngineSuite) TestEncryptPreference() {
	s.classifier.Register("secret_note", domain.NewDataAttribute(
		"secret_note", domain.CategoryOther, domain.SensitivityHigh, domain.ObfuscateEncrypt))

	s.Run("falls back to redact without a keyholder", func() {
		out, _, err := s.engine.ObfuscateAll(s.ctx, map[string]any{"secret_note": "top"})
		s.Require().NoError(err)
		s.Equal(RedactedSentinel, out["secret_note"])
	})

	s.Run("encrypts when a keyholder is installed", func() {
		enc, err := NewChaChaEncrypter(make([]byte, 32))
		s.Require().NoError(err)
		engine := NewEngine(s.classifier, evaluate.New(), zap.NewNop(), WithEncrypter(enc))

		out, _, err := engine.ObfuscateAll(s.ctx, map[string]any{"secret_note": "top"})
		s.Require().NoError(err)
		ct, ok := out["secret_note"].(string)
		s.Require().True(ok)
		s.True(strings.HasPrefix(ct, "enc_"))

		plain, err := enc.Decrypt(ct)
		s.Require().NoError(err)
		s.Equal(`"top"`, string(plain))
	})
}
