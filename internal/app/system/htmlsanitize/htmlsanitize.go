// Package htmlsanitize strips markup from user-supplied text such as chat
// messages and rating comments.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag (and the contents of script/style elements)
// and returns unescaped text meant to be rendered as text, never as HTML.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
