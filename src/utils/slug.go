package utils

import (
	"regexp"
	"strings"
)

// -----------------------------------------------------------------------------

var slugSeparators = regexp.MustCompile(`[\s_]+`)

// Slugify lowercases a label and collapses every run of whitespace or
// underscores into a single hyphen, matching the provider's URL slugs.
func Slugify(name string) string {
	return slugSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
