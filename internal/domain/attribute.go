package domain

// Sensitivity ranks how damaging disclosure of a field would be. It drives the
// default PII flag and informs which obfuscation method a classifier prefers.
type Sensitivity int

const (
	SensitivityLow Sensitivity = iota
	SensitivityMedium
	SensitivityHigh
	SensitivityCritical
)

var sensitivityNames = map[Sensitivity]string{
	SensitivityLow:      "low",
	SensitivityMedium:   "medium",
	SensitivityHigh:     "high",
	SensitivityCritical: "critical",
}

func (s Sensitivity) String() string {
	if name, ok := sensitivityNames[s]; ok {
		return name
	}
	return "low"
}

// DefaultPII derives the PII flag from sensitivity: anything Medium or above
// is treated as PII unless the attribute overrides it.
func DefaultPII(s Sensitivity) bool {
	return s >= SensitivityMedium
}

// ObfuscationMethod names the transform applied to a field value when raw
// access is denied.
type ObfuscationMethod string

const (
	ObfuscateNone      ObfuscationMethod = "none"
	ObfuscateRedact    ObfuscationMethod = "redact"
	ObfuscateHash      ObfuscationMethod = "hash"
	ObfuscateTokenize  ObfuscationMethod = "tokenize"
	ObfuscateMask      ObfuscationMethod = "mask"
	ObfuscateEncrypt   ObfuscationMethod = "encrypt"
	ObfuscateAggregate ObfuscationMethod = "aggregate"
)

var validObfuscationMethods = map[ObfuscationMethod]bool{
	ObfuscateNone:      true,
	ObfuscateRedact:    true,
	ObfuscateHash:      true,
	ObfuscateTokenize:  true,
	ObfuscateMask:      true,
	ObfuscateEncrypt:   true,
	ObfuscateAggregate: true,
}

func (m ObfuscationMethod) IsValid() bool {
	return validObfuscationMethods[m]
}

func (m ObfuscationMethod) String() string {
	return string(m)
}

// DataAttribute is the classification of one record field: what category of
// data it holds, how sensitive it is, and which transform to apply if access
// is denied. Attributes are produced transiently per classified field.
type DataAttribute struct {
	Name            string
	Category        DataCategory
	Sensitivity     Sensitivity
	IsPII           bool
	PreferredMethod ObfuscationMethod
}

// NewDataAttribute constructs an attribute with the PII flag derived from
// sensitivity. The derivation happens once here, not ad hoc at read time.
func NewDataAttribute(name string, category DataCategory, sensitivity Sensitivity, preferred ObfuscationMethod) DataAttribute {
	return DataAttribute{
		Name:            name,
		Category:        category,
		Sensitivity:     sensitivity,
		IsPII:           DefaultPII(sensitivity),
		PreferredMethod: preferred,
	}
}

// WithPIIOverride returns a copy with an explicit PII flag, bypassing the
// sensitivity-derived default.
func (a DataAttribute) WithPIIOverride(isPII bool) DataAttribute {
	a.IsPII = isPII
	return a
}
