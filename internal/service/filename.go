package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename reduces a client supplied filename to a safe display name:
// path separators become underscores, accents are folded, and anything outside
// [A-Za-z0-9_.-] is dropped. The result may be empty.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.FieldsFunc(name, unicode.IsSpace), "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
