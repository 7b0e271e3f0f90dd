package classify

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"veil/internal/domain"
)

// Classified pairs a record key (compound for nested fields, e.g.
// "user.details.email" or "tags[0]") with the leaf's value and the attribute
// derived for it. The compound key is printable, not invertible: a literal
// top-level "a.b" and a nested a→b render identically, so consumers that need
// to tell leaves apart must go by Value and walk position, never by Key.
type Classified struct {
	Key       string
	Value     any
	Attribute domain.DataAttribute
}

// Classifier walks a record and assigns a DataAttribute to every leaf. An
// exact-name override registry takes precedence over the pattern rules; the
// walk is total and deterministic.
type Classifier struct {
	rules []Rule

	mu        sync.RWMutex
	overrides map[string]domain.DataAttribute
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules replaces the default rule ordering.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) { c.rules = rules }
}

func New(opts ...Option) *Classifier {
	c := &Classifier{
		rules:     DefaultRules(),
		overrides: make(map[string]domain.DataAttribute),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Register adds an exact-name override. The name matches either the full
// compound key or the leaf segment; full-key entries win.
func (c *Classifier) Register(name string, attr domain.DataAttribute) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[name] = attr
}

// Classify returns one entry per leaf of the record, in a stable order:
// sibling keys sorted lexically, array elements in index order. No leaf is
// silently dropped.
func (c *Classifier) Classify(record map[string]any) []Classified {
	var out []Classified
	c.walkMap("", record, &out)
	return out
}

func (c *Classifier) walkMap(prefix string, m map[string]any, out *[]Classified) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		c.walkValue(key, m[k], out)
	}
}

func (c *Classifier) walkValue(key string, v any, out *[]Classified) {
	switch val := v.(type) {
	case map[string]any:
		c.walkMap(key, val, out)
	case []any:
		for i, elem := range val {
			c.walkValue(fmt.Sprintf("%s[%d]", key, i), elem, out)
		}
	default:
		*out = append(*out, Classified{Key: key, Value: v, Attribute: c.classifyLeaf(key)})
	}
}

// classifyLeaf resolves one compound key: full-key override, then leaf-name
// override, then the first matching pattern rule, then the fallback.
func (c *Classifier) classifyLeaf(key string) domain.DataAttribute {
	leaf := leafName(key)

	c.mu.RLock()
	attr, ok := c.overrides[key]
	if !ok {
		attr, ok = c.overrides[leaf]
	}
	c.mu.RUnlock()
	if ok {
		attr.Name = key
		return attr
	}

	for _, rule := range c.rules {
		if rule.Pattern.MatchString(leaf) || rule.Pattern.MatchString(key) {
			return domain.NewDataAttribute(key, rule.Category, rule.Sensitivity, rule.Method)
		}
	}
	return fallbackAttribute(key)
}

// leafName strips the compound prefix and any array index from a key:
// "user.details.email" -> "email", "tags[0]" -> "tags".
func leafName(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	if i := strings.Index(key, "["); i >= 0 {
		key = key[:i]
	}
	return key
}
