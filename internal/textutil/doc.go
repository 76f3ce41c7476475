// Package textutil provides text helpers for matching release names and
// building safe file system paths.
//
// The primary use cases are:
//   - Folding diacritics and separators so tag and filename comparisons
//     ignore accents, case and punctuation
//   - Token fingerprints and cosine similarity for guessing which album a
//     download folder belongs to
//   - Sanitizing filenames and path segments for safe filesystem use
package textutil
