package errors

import (
	"math"
	"regexp"
	"unicode"
)

// identifierRegex matches link and joint names: lowercase words joined by underscores.
var identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateName validates a link, joint or leg name.
//
// The rules are conservative:
//   - No empty names
//   - No control characters
//   - Maximum length of 128 characters
//   - Lowercase letters, digits and underscores, starting with a letter
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "%s name cannot be empty", kind)
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "%s name too long (max 128 characters)", kind)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s name contains invalid control characters", kind)
		}
	}
	if !identifierRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid %s name: %q", kind, name)
	}
	return nil
}

// ValidateFinite rejects NaN and infinite values.
func ValidateFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidInput, "%s must be finite, got %v", field, v)
	}
	return nil
}

// ValidatePositive rejects values that are not finite and strictly positive.
func ValidatePositive(field string, v float64) error {
	if err := ValidateFinite(field, v); err != nil {
		return err
	}
	if v <= 0 {
		return New(ErrCodeInvalidInput, "%s must be positive, got %v", field, v)
	}
	return nil
}

// ValidateRange checks that lo <= hi and both are finite.
func ValidateRange(field string, lo, hi float64) error {
	if err := ValidateFinite(field, lo); err != nil {
		return err
	}
	if err := ValidateFinite(field, hi); err != nil {
		return err
	}
	if lo > hi {
		return New(ErrCodeInvalidInput, "%s: lower bound %v exceeds upper bound %v", field, lo, hi)
	}
	return nil
}
