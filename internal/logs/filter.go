package logs

import (
	"encoding/json"
	"strings"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter selects log lines. Zero values match everything.
type Filter struct {
	// MinLevel drops lines below this level (debug, info, warn, error).
	MinLevel  string
	Component string
	Contains  string
}

type entry struct {
	Level     string `json:"level"`
	Component string `json:"component"`
}

func (f Filter) empty() bool {
	return f.MinLevel == "" && f.Component == "" && f.Contains == ""
}

// Match reports whether line passes the filter. Lines that are not JSON only
// match when no level or component is requested.
func (f Filter) Match(line string) bool {
	if f.empty() {
		return true
	}
	if f.Contains != "" && !strings.Contains(strings.ToLower(line), strings.ToLower(f.Contains)) {
		return false
	}
	if f.MinLevel == "" && f.Component == "" {
		return true
	}
	var e entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return false
	}
	if f.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(f.MinLevel)]
		got, known := levelRank[strings.ToLower(e.Level)]
		if ok && (!known || got < want) {
			return false
		}
	}
	if f.Component != "" && !strings.EqualFold(e.Component, f.Component) {
		return false
	}
	return true
}

// Apply returns the lines that pass the filter.
func (f Filter) Apply(lines []string) []string {
	if f.empty() {
		return lines
	}
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if f.Match(line) {
			kept = append(kept, line)
		}
	}
	return kept
}
