package hospitality

import (
	"regexp"
	"strings"
)

// Hospitality ids are one uppercase letter followed by three digits (A123).
var hospIDPattern = regexp.MustCompile(`^[A-Z][0-9]{3}$`)

// ValidHospitalityID reports whether id matches the badge format.
func ValidHospitalityID(id string) bool {
	return hospIDPattern.MatchString(id)
}

// NormalizeHospitalityID cleans up raw scanner text before validation.
func NormalizeHospitalityID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
