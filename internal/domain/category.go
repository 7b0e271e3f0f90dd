package domain

import dErrors "veil/pkg/domain-errors"

// DataCategory labels the kind of personal data a field carries. Policies
// declare which categories they cover and consents grant access per category.
//
// Usage: construct via ParseDataCategory at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type DataCategory string

const (
	CategoryPersonalInfo DataCategory = "personal_info"
	CategoryContact      DataCategory = "contact"
	CategoryFinancial    DataCategory = "financial"
	CategoryHealth       DataCategory = "health"
	CategoryBiometric    DataCategory = "biometric"
	CategoryLocation     DataCategory = "location"
	CategoryBehavioral   DataCategory = "behavioral"
	CategoryTechnical    DataCategory = "technical"
	CategoryOther        DataCategory = "other"
)

// validDataCategories is the single source of truth for valid categories.
var validDataCategories = map[DataCategory]bool{
	CategoryPersonalInfo: true,
	CategoryContact:      true,
	CategoryFinancial:    true,
	CategoryHealth:       true,
	CategoryBiometric:    true,
	CategoryLocation:     true,
	CategoryBehavioral:   true,
	CategoryTechnical:    true,
	CategoryOther:        true,
}

// ParseDataCategory constructs a DataCategory from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseDataCategory(s string) (DataCategory, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "data category cannot be empty")
	}
	c := DataCategory(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid data category")
	}
	return c, nil
}

// IsValid checks if the category is one of the supported enum values.
func (c DataCategory) IsValid() bool {
	return validDataCategories[c]
}

func (c DataCategory) String() string {
	return string(c)
}
