package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxCareTipsLen bounds the stored care tips, in runes.
const MaxCareTipsLen = 600

var (
	markupRegex    = regexp.MustCompile("[*_#`>]+")
	bulletRegex    = regexp.MustCompile(`(?m)^[ \t]*(?:[-•]|\d+[.)])[ \t]+`)
	spaceRegex     = regexp.MustCompile(`\s+`)
	ErrParseFailed = errors.New("parse_failed")
	ErrUnknown     = errors.New("plant not recognised")
)

// ParseCareTips turns model output into a single plain-text paragraph. It
// strips markdown emphasis and list bullets, collapses whitespace and cuts
// the result at the last sentence end within MaxCareTipsLen.
func ParseCareTips(text string) (string, error) {
	s := bulletRegex.ReplaceAllString(text, "")
	s = markupRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
	if s == "" {
		return "", fmt.Errorf("%w: empty answer", ErrParseFailed)
	}
	if strings.EqualFold(strings.Trim(s, ". "), "unknown") {
		return "", ErrUnknown
	}
	if utf8.RuneCountInString(s) <= MaxCareTipsLen {
		return s, nil
	}
	cut := string([]rune(s)[:MaxCareTipsLen])
	if i := strings.LastIndexAny(cut, ".!?"); i > 0 {
		return cut[:i+1], nil
	}
	return strings.TrimSpace(cut), nil
}
