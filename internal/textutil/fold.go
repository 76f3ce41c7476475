package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorPattern  = regexp.MustCompile(`[.\-_]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// FoldDiacritics strips combining marks after canonical decomposition:
// "Beyoncé" becomes "Beyonce". Text that cannot be transformed is returned
// unchanged.
func FoldDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// MatchKey lowercases, folds diacritics and collapses whitespace.
func MatchKey(text string) string {
	folded := strings.ToLower(FoldDiacritics(text))
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(folded, " "))
}

// FilenameKey turns dots, dashes and underscores into spaces before applying
// MatchKey.
func FilenameKey(name string) string {
	return MatchKey(separatorPattern.ReplaceAllString(name, " "))
}

// EqualFold compares two strings by MatchKey.
func EqualFold(a, b string) bool {
	return MatchKey(a) == MatchKey(b)
}
