package service

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// MaxTitleRunes matches the width of tickets.title.
const MaxTitleRunes = 200

var (
	strictPolicy = bluemonday.StrictPolicy()

	// A closing tag, a comment or a self-closing element marks the text as
	// markup. A lone "<" or "a<b and c>d" does not.
	closingTag     = regexp.MustCompile(`(?i)</([a-z][a-z0-9]*)\s*>`)
	markupFragment = regexp.MustCompile(`(?is)<!--.*?-->|<[a-z][a-z0-9]*(\s[^<>]*)?/>`)
)

// cleanText trims user supplied text and strips markup from it. Text that
// only happens to contain angle brackets is kept as typed.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if !looksLikeMarkup(s) {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func looksLikeMarkup(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}
	if markupFragment.MatchString(s) {
		return true
	}
	for _, m := range closingTag.FindAllStringSubmatchIndex(s, -1) {
		name := s[m[2]:m[3]]
		opening := regexp.MustCompile(`(?i)<` + regexp.QuoteMeta(name) + `(\s[^<>]*)?>`)
		if loc := opening.FindStringIndex(s[:m[0]]); loc != nil {
			return true
		}
	}
	return false
}

// maxRunes rejects a field longer than limit characters.
func maxRunes(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return apperrors.NewValidationError(field+" is too long", map[string]any{
			"field": field, "max_length": limit,
		})
	}
	return nil
}
