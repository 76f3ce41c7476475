package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// CleanSegment sanitizes one path segment and replaces a leading or trailing
// dot with an underscore so the segment is never hidden or dot-terminated.
func CleanSegment(segment string) string {
	segment = SanitizeFileName(segment)
	if strings.HasPrefix(segment, ".") {
		segment = "_" + segment[1:]
	}
	if strings.HasSuffix(segment, ".") {
		segment = segment[:len(segment)-1] + "_"
	}
	return segment
}

// CleanRelativePath applies CleanSegment to every slash separated segment
// and drops empty ones.
func CleanRelativePath(path string) string {
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, part := range parts {
		if cleaned := CleanSegment(part); cleaned != "" {
			kept = append(kept, cleaned)
		}
	}
	return strings.Join(kept, "/")
}
