package textutil

import (
	"math"
	"strings"
	"unicode"
)

// releaseNoise are tokens scene and tracker names add to album folders.
var releaseNoise = map[string]bool{
	"flac": true, "mp3": true, "aac": true, "ogg": true, "m4a": true, "alac": true,
	"cbr": true, "vbr": true, "v0": true, "v2": true, "320": true, "256": true, "192": true,
	"lossless": true, "web": true, "cd": true, "cdda": true, "vinyl": true,
	"16bit": true, "24bit": true, "remaster": true, "remastered": true, "the": true,
}

// Fingerprint is a term-count vector of a folder or album name.
type Fingerprint struct {
	counts map[string]int
	norm   float64
}

// NewFingerprint tokenizes text into lower-case, diacritic-folded words,
// dropping release noise and four digit years. It returns nil when nothing is
// left.
func NewFingerprint(text string) *Fingerprint {
	counts := make(map[string]int)
	for _, word := range Words(text) {
		counts[word]++
	}
	if len(counts) == 0 {
		return nil
	}
	var sum float64
	for _, n := range counts {
		sum += float64(n * n)
	}
	return &Fingerprint{counts: counts, norm: math.Sqrt(sum)}
}

// Words splits text on anything but letters and digits and drops noise.
func Words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(FoldDiacritics(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, field := range fields {
		if releaseNoise[field] || isYear(field) {
			continue
		}
		words = append(words, field)
	}
	return words
}

func isYear(word string) bool {
	if len(word) != 4 || (word[0] != '1' && word[0] != '2') {
		return false
	}
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Len reports the number of distinct words.
func (f *Fingerprint) Len() int {
	if f == nil {
		return 0
	}
	return len(f.counts)
}

// Similarity is the cosine of the two count vectors, 0 when either side is
// nil.
func (f *Fingerprint) Similarity(other *Fingerprint) float64 {
	if f == nil || other == nil {
		return 0
	}
	small, large := f, other
	if len(small.counts) > len(large.counts) {
		small, large = large, small
	}
	var dot int
	for word, n := range small.counts {
		dot += n * large.counts[word]
	}
	if dot == 0 {
		return 0
	}
	return float64(dot) / (f.norm * other.norm)
}
