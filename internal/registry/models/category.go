package models

import (
	"strings"

	dErrors "purposepay/pkg/domain-errors"
)

// Category is the spending purpose a merchant is approved for.
// Invariant: a Category held by the domain is always one of the five
// declared values; construct from external input via ParseCategory.
type Category uint8

const (
	CategoryFood Category = iota
	CategoryMedical
	CategoryShelter
	CategoryEducation
	CategoryUtilities
)

// UnknownCategoryName is returned by CategoryName for values outside the enum.
const UnknownCategoryName = "UNKNOWN"

var categoryNames = [...]string{
	CategoryFood:      "FOOD",
	CategoryMedical:   "MEDICAL",
	CategoryShelter:   "SHELTER",
	CategoryEducation: "EDUCATION",
	CategoryUtilities: "UTILITIES",
}

// Categories lists all categories in declaration order.
func Categories() []Category {
	return []Category{CategoryFood, CategoryMedical, CategoryShelter, CategoryEducation, CategoryUtilities}
}

// ParseCategory accepts a category name (case-insensitive).
//
// Errors: returns CodeInvalidInput for empty or unknown names.
func ParseCategory(s string) (Category, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "category cannot be empty")
	}
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, dErrors.Newf(dErrors.CodeInvalidInput, "unknown category %q", s)
}

// CategoryFromCode converts a stored numeric code.
func CategoryFromCode(code int) (Category, error) {
	if code < 0 || code >= len(categoryNames) {
		return 0, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown category code %d", code)
	}
	return Category(code), nil
}

func (c Category) IsValid() bool {
	return int(c) < len(categoryNames)
}

// String returns the display name, or UnknownCategoryName for invalid values.
func (c Category) String() string {
	return CategoryName(c)
}

// CategoryName is the fixed lookup table used by the query surface.
func CategoryName(c Category) string {
	if !c.IsValid() {
		return UnknownCategoryName
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
