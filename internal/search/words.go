package search

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

var separators = regexp.MustCompile(`[.\-/_]`)

// NormalizeTitle turns dots, dashes, slashes and underscores into spaces and
// lowercases the title.
func NormalizeTitle(title string) string {
	return strings.ToLower(separators.ReplaceAllString(title, " "))
}

// SplitWords splits a comma separated word list, dropping empty entries.
func SplitWords(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if word := strings.TrimSpace(part); word != "" {
			out = append(out, word)
		}
	}
	return out
}

// RequiredGroups parses a REQUIRED_WORDS value. Every comma separated group
// must match; inside a group the token "OR" separates alternatives of which
// one must match.
func RequiredGroups(words []string) [][]string {
	groups := make([][]string, 0, len(words))
	for _, word := range words {
		var alternatives []string
		for _, alt := range strings.Split(word, " OR ") {
			if alt = strings.TrimSpace(alt); alt != "" {
				alternatives = append(alternatives, alt)
			}
		}
		if len(alternatives) > 0 {
			groups = append(groups, alternatives)
		}
	}
	return groups
}

// termExempt tokens may be missing from titles; compilations are often
// listed as VA.
var termExempt = []string{"various", "artists", "va"}

var lookalikes = strings.NewReplacer("!", "i", "$", "s")

// MissingTermToken returns the first token of term that title does not carry
// as a whole word. A token also matches with its punctuation stripped or with
// ! and $ read as i and s.
func MissingTermToken(title, term string) (string, bool) {
	raw := strings.ToLower(title)
	normalized := NormalizeTitle(title)
	for _, token := range strings.Fields(strings.ToLower(term)) {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsPunct(r) || unicode.IsSymbol(r) {
				return -1
			}
			return r
		}, token)
		if clean == "" || slices.Contains(termExempt, clean) {
			continue
		}
		found := false
		for _, candidate := range []string{token, clean, lookalikes.Replace(token)} {
			if containsWord(raw, candidate) || containsWord(normalized, candidate) {
				found = true
				break
			}
		}
		if !found {
			return token, true
		}
	}
	return "", false
}

// containsWord reports whether word occurs in text bounded by non-word runes
// or the ends of text.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; ; {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(word)
		if !wordRuneBefore(text, start) && !wordRuneAfter(text, end) {
			return true
		}
		offset = start + 1
	}
}

func wordRuneBefore(text string, i int) bool {
	r, size := utf8.DecodeLastRuneInString(text[:i])
	return size > 0 && isWordRune(r)
}

func wordRuneAfter(text string, i int) bool {
	r, size := utf8.DecodeRuneInString(text[i:])
	return size > 0 && isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsAnyFold(haystack string, needles []string) (string, bool) {
	for _, needle := range needles {
		if containsFold(haystack, needle) {
			return needle, true
		}
	}
	return "", false
}
