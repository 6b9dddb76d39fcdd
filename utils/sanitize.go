package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user input and trims surrounding space.
// Entities produced by the policy are decoded again; templates escape on output.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(input)))
}
