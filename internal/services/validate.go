package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// tableNumberRE accepts short alphanumeric table identifiers as printed on
// physical table tents ("12", "A3", "T12").
var tableNumberRE = regexp.MustCompile(`^[A-Za-z]?[0-9]{1,3}[A-Za-z]?$`)

// TableNumberValidator checks table identifier format. It is a variable so
// deployments with venue-specific numbering can swap the validator in.
var TableNumberValidator = func(tableNumber string) bool {
	return tableNumberRE.MatchString(tableNumber)
}

// maxDinerNameRunes caps the display name length.
const maxDinerNameRunes = 40

// normalizeDinerName trims and collapses whitespace; the result may be empty.
func normalizeDinerName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// validDinerName reports whether a normalized name is acceptable.
func validDinerName(name string) bool {
	return name != "" && utf8.RuneCountInString(name) <= maxDinerNameRunes
}
