package visit

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatchKeyLength is how many normalized characters two names must share.
const MatchKeyLength = 10

// nameLabel captures the first word after a "Name" label, e.g. "Name: Ravi".
var nameLabel = regexp.MustCompile(`(?i)name:?[\s-]*(\w+)`)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeText strips everything but letters and digits and uppercases the rest.
func NormalizeText(s string) string {
	s = RemoveDiacritics(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// ExtractName returns the normalized word following a Name label in OCR
// text. ok is false when the text carries no label.
func ExtractName(text string) (name string, ok bool) {
	m := nameLabel.FindStringSubmatch(RemoveDiacritics(text))
	if m == nil {
		return "", false
	}
	name = NormalizeText(m[1])
	return name, name != ""
}

// MatchKey returns the prefix of a normalized name used for exit matching.
func MatchKey(name string) string {
	r := []rune(name)
	if len(r) > MatchKeyLength {
		r = r[:MatchKeyLength]
	}
	return string(r)
}

// SameVisitor reports whether two normalized names share their match key.
func SameVisitor(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return MatchKey(a) == MatchKey(b)
}
