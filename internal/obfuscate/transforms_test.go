package obfuscate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type TransformsSuite struct {
	suite.Suite
}

func TestTransformsSuite(t *testing.T) {
	suite.Run(t, new(TransformsSuite))
}

func (s *TransformsSuite) TestRedact() {
	s.Equal(RedactedSentinel, Redact("secret"))
	s.Equal(RedactedSentinel, Redact(12345))
	s.Equal(RedactedSentinel, Redact(nil))
}

func (s *TransformsSuite) TestHash() {
	s.Run("stable across calls", func() {
		s.Equal(Hash("a@example.com"), Hash("a@example.com"))
	})

	s.Run("differs per input", func() {
		s.NotEqual(Hash("a@example.com"), Hash("b@example.com"))
	})

	s.Run("non-string values digest deterministically", func() {
		s.Equal(Hash(42), Hash(42))
		s.NotEqual(Hash(42), Hash("42"))
	})

	s.Run("never echoes the input", func() {
		out, ok := Hash("secret").(string)
		s.Require().True(ok)
		s.NotContains(out, "secret")
		s.Len(out, 64)
	})
}

func (s *TransformsSuite) TestTokenize() {
	first, ok := Tokenize("4111111111111111").(string)
	s.Require().True(ok)
	s.True(strings.HasPrefix(first, "tok_"))

	// Same input, fresh handle every time.
	s.NotEqual(first, Tokenize("4111111111111111"))
}

func (s *TransformsSuite) TestMask() {
	s.Run("reveals only the tail", func() {
		s.Equal("********0100", Mask("555-555-0100"))
	})

	s.Run("short values are fully masked", func() {
		s.Equal("****", Mask("1234"))
		s.Equal("**", Mask("ab"))
	})

	s.Run("handles non-string input", func() {
		s.Equal("***3456", Mask(1233456))
	})
}

func (s *TransformsSuite) TestAggregate() {
	s.Equal(AggregatedSentinel, Aggregate(95000))
	s.Equal(AggregatedSentinel, Aggregate("Berlin"))
}
