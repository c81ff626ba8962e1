// Package sanitize strips markup from user-supplied profile fields (name,
// company, phone) before they are stored. Those values end up in identity
// tokens read by other applications, so they must be plain single-line text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every element. bluemonday policies are safe for
// concurrent use once built.
var strict = bluemonday.StrictPolicy()

// Text removes all HTML from input and collapses every run of whitespace,
// line breaks included, into one space. Entities produced by the policy are
// decoded again, so "AT&T" stays "AT&T"; templates escape on output.
func Text(input string) string {
	if input == "" {
		return ""
	}
	plain := html.UnescapeString(strict.Sanitize(input))
	return strings.Join(strings.Fields(plain), " ")
}
