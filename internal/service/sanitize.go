package service

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// cleanText strips all markup from user supplied text. The policy escapes
// entities, which are turned back into plain characters for storage.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(strings.TrimSpace(s))))
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}
