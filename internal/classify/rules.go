package classify

import (
	"regexp"

	"veil/internal/domain"
)

// Rule binds a field-name pattern to a classification. Rules are evaluated in
// order; the first match wins.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Category    domain.DataCategory
	Sensitivity domain.Sensitivity
	Method      domain.ObfuscationMethod
}

// DefaultRules is the built-in ordering. More specific identity patterns come
// before broader catch-alls so a field like "national_id" is never claimed by
// the generic identifier rule.
func DefaultRules() []Rule {
	rule := func(name, pattern string, cat domain.DataCategory, sens domain.Sensitivity, m domain.ObfuscationMethod) Rule {
		return Rule{
			Name:        name,
			Pattern:     regexp.MustCompile("(?i)" + pattern),
			Category:    cat,
			Sensitivity: sens,
			Method:      m,
		}
	}
	return []Rule{
		rule("government-id", `ssn|social_security|passport|national_id|tax_id`, domain.CategoryPersonalInfo, domain.SensitivityCritical, domain.ObfuscateRedact),
		rule("biometric", `biometric|fingerprint|face_id|retina|voiceprint`, domain.CategoryBiometric, domain.SensitivityCritical, domain.ObfuscateRedact),
		rule("health", `health|medical|diagnos|prescription|blood`, domain.CategoryHealth, domain.SensitivityCritical, domain.ObfuscateRedact),
		rule("payment-instrument", `card|iban|account_number|routing`, domain.CategoryFinancial, domain.SensitivityCritical, domain.ObfuscateTokenize),
		rule("financial", `salary|income|balance|payment|invoice`, domain.CategoryFinancial, domain.SensitivityHigh, domain.ObfuscateAggregate),
		rule("email", `email|e_mail`, domain.CategoryContact, domain.SensitivityMedium, domain.ObfuscateHash),
		rule("phone", `phone|mobile|fax`, domain.CategoryContact, domain.SensitivityMedium, domain.ObfuscateMask),
		rule("postal", `address|street|city|zip|postal`, domain.CategoryContact, domain.SensitivityMedium, domain.ObfuscateRedact),
		rule("geolocation", `latitude|longitude|geo|gps|location`, domain.CategoryLocation, domain.SensitivityHigh, domain.ObfuscateAggregate),
		rule("birth", `birth|dob|age`, domain.CategoryPersonalInfo, domain.SensitivityHigh, domain.ObfuscateMask),
		rule("person-name", `first_name|last_name|full_name|surname|^name$`, domain.CategoryPersonalInfo, domain.SensitivityMedium, domain.ObfuscateRedact),
		rule("behavioral", `click|visit|browsing|history|preference|interest`, domain.CategoryBehavioral, domain.SensitivityMedium, domain.ObfuscateAggregate),
		rule("network", `ip_address|\bip$|mac_address|user_agent|device`, domain.CategoryTechnical, domain.SensitivityLow, domain.ObfuscateHash),
		rule("identifier", `_id$|^id$|uuid|token`, domain.CategoryTechnical, domain.SensitivityLow, domain.ObfuscateTokenize),
	}
}

// fallbackAttribute classifies a field no rule claimed.
func fallbackAttribute(name string) domain.DataAttribute {
	return domain.NewDataAttribute(name, domain.CategoryOther, domain.SensitivityLow, domain.ObfuscateRedact)
}
