package evaluate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veil/internal/consent"
	"veil/internal/domain"
	"veil/internal/policy"
)

type EvaluatorSuite struct {
	suite.Suite
	eval *Evaluator
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.eval = New()
}

func (s *EvaluatorSuite) newPolicy() *policy.Policy {
	return &policy.Policy{
		PolicyID:       "pol-1",
		Version:        "1.0",
		DataCategories: []domain.DataCategory{domain.CategoryContact, domain.CategoryPersonalInfo},
		Purposes:       []domain.Purpose{domain.PurposeAnalytics, domain.PurposeMarketing},
		ThirdParties:   []string{"partner-a"},
		LegalBasis:     domain.BasisConsent,
		CreatedAt:      time.Now(),
	}
}

func (s *EvaluatorSuite) newConsent() *consent.Consent {
	return &consent.Consent{
		ConsentID:      "con-1",
		UserID:         "user-1",
		PolicyID:       "pol-1",
		PolicyVersion:  "1.0",
		DataCategories: []domain.DataCategory{domain.CategoryContact, domain.CategoryPersonalInfo},
		Purposes:       []domain.Purpose{domain.PurposeAnalytics},
		ThirdParties:   []string{"partner-a"},
		Timestamp:      time.Now(),
		IsActive:       true,
	}
}

func attrs(cats ...domain.DataCategory) []domain.DataAttribute {
	out := make([]domain.DataAttribute, 0, len(cats))
	for _, c := range cats {
		out = append(out, domain.NewDataAttribute("field", c, domain.SensitivityMedium, domain.ObfuscateRedact))
	}
	return out
}

func (s *EvaluatorSuite) TestPermitted() {
	s.Run("all rules hold", func() {
		ok := s.eval.Permitted(s.newPolicy(), s.newConsent(),
			attrs(domain.CategoryContact), domain.PurposeAnalytics, "partner-a")
		s.True(ok)
	})

	s.Run("no third party named skips rule six", func() {
		ok := s.eval.Permitted(s.newPolicy(), s.newConsent(),
			attrs(domain.CategoryContact), domain.PurposeAnalytics, "")
		s.True(ok)
	})

	s.Run("nil policy denies", func() {
		s.False(s.eval.Permitted(nil, s.newConsent(),
			attrs(domain.CategoryContact), domain.PurposeAnalytics, ""))
	})

	s.Run("invalid purpose denies", func() {
		s.False(s.eval.Permitted(s.newPolicy(), s.newConsent(),
			attrs(domain.CategoryContact), domain.Purpose("telemetry"), ""))
	})

	s.Run("purpose not declared by policy denies", func() {
		s.False(s.eval.Permitted(s.newPolicy(), s.newConsent(),
			attrs(domain.CategoryContact), domain.PurposeResearch, ""))
	})

	s.Run("category not declared by policy denies", func() {
		s.False(s.eval.Permitted(s.newPolicy(), s.newConsent(),
			attrs(domain.CategoryHealth), domain.PurposeAnalytics, ""))
	})

	s.Run("one bad category among good ones denies", func() {
		s.False(s.eval.Permitted(s.newPolicy(), s.newConsent(),
			attrs(domain.CategoryContact, domain.CategoryHealth), domain.PurposeAnalytics, ""))
	})

	s.Run("nil consent denies", func() {
		s.False(s.eval.Permitted(s.newPolicy(), nil,
			attrs(domain.CategoryContact), domain.PurposeAnalytics, ""))
	})

	s.Run("inactive consent denies", func() {
		c := s.newConsent()
		c.IsActive = false
		s.False(s.eval.Permitted(s.newPolicy(), c,
			attrs(domain.CategoryContact), domain.PurposeAnalytics, ""))
	})

	s.Run("category not consented denies", func() {
		c := s.newConsent()
		c.DataCategories = []domain.DataCategory{domain.CategoryContact}
		s.False(s.eval.Permitted(s.newPolicy(), c,
			attrs(domain.CategoryPersonalInfo), domain.PurposeAnalytics, ""))
	})

	s.Run("purpose declared but not consented denies", func() {
		s.False(s.eval.Permitted(s.newPolicy(), s.newConsent(),
			attrs(domain.CategoryContact), domain.PurposeMarketing, ""))
	})

	s.Run("third party not consented denies", func() {
		s.False(s.eval.Permitted(s.newPolicy(), s.newConsent(),
			attrs(domain.CategoryContact), domain.PurposeAnalytics, "partner-b"))
	})

	s.Run("wildcard consents any third party", func() {
		c := s.newConsent()
		c.ThirdParties = []string{consent.ThirdPartyWildcard}
		s.True(s.eval.Permitted(s.newPolicy(), c,
			attrs(domain.CategoryContact), domain.PurposeAnalytics, "anyone"))
	})

	s.Run("no attributes needs only purpose and consent", func() {
		s.True(s.eval.Permitted(s.newPolicy(), s.newConsent(),
			nil, domain.PurposeAnalytics, ""))
	})
}

func (s *EvaluatorSuite) TestConsentExemptBases() {
	s.Run("exempt basis short-circuits consent rules", func() {
		eval := New(WithConsentExemptBases(domain.BasisLegalObligation))
		p := s.newPolicy()
		p.LegalBasis = domain.BasisLegalObligation

		ok := eval.Permitted(p, nil, attrs(domain.CategoryContact), domain.PurposeAnalytics, "")
		s.True(ok)
	})

	s.Run("exempt basis still requires policy coverage", func() {
		eval := New(WithConsentExemptBases(domain.BasisLegalObligation))
		p := s.newPolicy()
		p.LegalBasis = domain.BasisLegalObligation

		s.False(eval.Permitted(p, nil, attrs(domain.CategoryHealth), domain.PurposeAnalytics, ""))
	})

	s.Run("default evaluator has no exemptions", func() {
		p := s.newPolicy()
		p.LegalBasis = domain.BasisLegalObligation

		s.False(s.eval.Permitted(p, nil, attrs(domain.CategoryContact), domain.PurposeAnalytics, ""))
	})
}
