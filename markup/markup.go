// Package markup holds the plain-text helpers used when handing article
// bodies to a language model: tag stripping, entity unescaping and
// UTF-8-safe truncation.
package markup

import (
	"html"
	"regexp"
	"strings"
)

var tagRe = regexp.MustCompile(`(?s)<[^>]*>`)

// StripHTML removes markup from an HTML fragment and collapses whitespace,
// leaving readable prose.
func StripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}
	text := tagRe.ReplaceAllString(fragment, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// Truncate cuts value to at most max characters. The cut lands on a rune
// boundary; max counts runes, not bytes, so non-ASCII text keeps its full
// budget.
func Truncate(value string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range value {
		if count == max {
			return value[:i]
		}
		count++
	}
	return value
}
