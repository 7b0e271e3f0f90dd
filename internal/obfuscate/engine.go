package obfuscate

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"veil/internal/classify"
	"veil/internal/consent"
	"veil/internal/domain"
	"veil/internal/policy"
)

// Classifier is the pluggable extension point: anything that can turn a record
// into classified leaves works, the built-in classify.Classifier being the
// default. Implementations must emit exactly one entry per leaf, walking maps
// with sibling keys in lexical order and arrays in index order; the engine
// substitutes decided values back by walk position, so compound-key strings
// that happen to collide (a literal "a.b" key next to a nested a→b) stay
// independent leaves.
type Classifier interface {
	Classify(record map[string]any) []classify.Classified
}

// Evaluator decides per attribute set whether raw access is permitted.
type Evaluator interface {
	Permitted(p *policy.Policy, c *consent.Consent, attributes []domain.DataAttribute, purpose domain.Purpose, thirdParty string) bool
}

// Engine applies per-field authorization and obfuscation to whole records.
// Per-field decisions are independent, so a single record may mix raw and
// transformed values.
type Engine struct {
	classifier Classifier
	evaluator  Evaluator
	encrypter  Encrypter
	log        *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEncrypter installs the keyholder used by the Encrypt method.
func WithEncrypter(enc Encrypter) EngineOption {
	return func(e *Engine) { e.encrypter = enc }
}

func NewEngine(classifier Classifier, evaluator Evaluator, log *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{classifier: classifier, evaluator: evaluator, log: log}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// FieldDecision reports what happened to one leaf during Process: either the
// raw value passed through, or Method was applied.
type FieldDecision struct {
	Key       string
	Permitted bool
	Method    domain.ObfuscationMethod
}

// Process classifies the record and, field by field, either passes the raw
// value through (when the evaluator permits it) or applies the attribute's
// preferred obfuscation. The output record has exactly the input's shape.
// Fields are evaluated concurrently; the transforms are pure, so ordering
// does not affect the result.
func (e *Engine) Process(
	ctx context.Context,
	record map[string]any,
	p *policy.Policy,
	c *consent.Consent,
	purpose domain.Purpose,
	thirdParty string,
) (map[string]any, []FieldDecision, error) {
	return e.run(ctx, record, func(field classify.Classified) bool {
		return e.evaluator.Permitted(p, c, []domain.DataAttribute{field.Attribute}, purpose, thirdParty)
	})
}

// ObfuscateAll transforms every field with its preferred method regardless of
// policy or consent. The enforcer uses it as the fallback when no policy can
// be resolved.
func (e *Engine) ObfuscateAll(ctx context.Context, record map[string]any) (map[string]any, []FieldDecision, error) {
	return e.run(ctx, record, func(classify.Classified) bool { return false })
}

func (e *Engine) run(
	ctx context.Context,
	record map[string]any,
	permitted func(classify.Classified) bool,
) (map[string]any, []FieldDecision, error) {
	fields := e.classifier.Classify(record)
	if n := countLeaves(record); n != len(fields) {
		return nil, nil, fmt.Errorf("classifier emitted %d leaves for a record with %d", len(fields), n)
	}

	// Each goroutine owns its own index; decided values go back into the
	// record by walk position, so leaves whose compound keys render
	// identically never overwrite each other.
	decisions := make([]any, len(fields))
	report := make([]FieldDecision, len(fields))

	g, _ := errgroup.WithContext(ctx)
	for i, field := range fields {
		i, field := i, field
		g.Go(func() error {
			allowed := permitted(field)
			method := field.Attribute.PreferredMethod
			if method == domain.ObfuscateNone {
				// None must never leak on deny.
				method = domain.ObfuscateRedact
			}

			if allowed {
				decisions[i] = field.Value
			} else {
				decisions[i] = e.apply(method, field.Value)
			}
			report[i] = FieldDecision{Key: field.Key, Permitted: allowed, Method: method}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	pos := 0
	return rebuild(record, decisions, &pos).(map[string]any), report, nil
}

// apply resolves one denied field. A None preference must itself fall back to
// Redact: an attribute never leaks raw data for lack of a declared method.
func (e *Engine) apply(method domain.ObfuscationMethod, value any) any {
	switch method {
	case domain.ObfuscateHash:
		return Hash(value)
	case domain.ObfuscateTokenize:
		return Tokenize(value)
	case domain.ObfuscateMask:
		return Mask(value)
	case domain.ObfuscateAggregate:
		return Aggregate(value)
	case domain.ObfuscateEncrypt:
		if e.encrypter == nil {
			return Redact(value)
		}
		encrypted, err := e.encrypter.Encrypt([]byte(canonical(value)))
		if err != nil {
			e.log.Warn("encrypt transform failed, redacting", zap.Error(err))
			return Redact(value)
		}
		return encrypted
	default:
		// Redact, None-on-deny, and anything unrecognized.
		return Redact(value)
	}
}

// countLeaves mirrors the classifier's walk to guard the leaf/decision
// alignment before rebuilding.
func countLeaves(v any) int {
	switch val := v.(type) {
	case map[string]any:
		n := 0
		for _, elem := range val {
			n += countLeaves(elem)
		}
		return n
	case []any:
		n := 0
		for _, elem := range val {
			n += countLeaves(elem)
		}
		return n
	default:
		return 1
	}
}

// rebuild mirrors the input structure in the classifier's walk order (sibling
// keys lexical, array elements by index), substituting each leaf with its
// decided value so output shape always equals input shape.
func rebuild(v any, decisions []any, pos *int) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make(map[string]any, len(val))
		for _, k := range keys {
			out[k] = rebuild(val[k], decisions, pos)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = rebuild(elem, decisions, pos)
		}
		return out
	default:
		d := decisions[*pos]
		*pos++
		return d
	}
}
