package config

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"headphones/internal/logging"
)

// Document is the persisted shape of the configuration: section name to
// lowercase key to primitive value.
type Document map[string]map[string]any

// Store holds configuration values in memory. Section lookups are
// case-insensitive and keep the case a section was first written with. A
// single mutex serializes every read and write made through options.
type Store struct {
	mu       sync.Mutex
	sections map[string]*section
	order    []string
	logger   *slog.Logger
}

type section struct {
	name   string
	values map[string]any
}

// NewStore returns an empty store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		sections: make(map[string]*section),
		logger:   logging.NewComponentLogger(logger, "config"),
	}
}

// Logger returns the logger options use for data warnings.
func (s *Store) Logger() *slog.Logger {
	if s == nil || s.logger == nil {
		return logging.NewNop()
	}
	return s.logger
}

// Lookup returns the stored value for section/key. The second result reports
// whether the section exists and the third whether the key exists in it.
func (s *Store) Lookup(sectionName, key string) (any, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sections[strings.ToLower(sectionName)]
	if !ok {
		return nil, false, false
	}
	value, found := sec.values[strings.ToLower(key)]
	return value, true, found
}

// Put writes a value, creating the section when it does not exist yet.
func (s *Store) Put(sectionName, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sectionLocked(sectionName).values[strings.ToLower(key)] = value
}

// Has reports whether section/key is present.
func (s *Store) Has(sectionName, key string) bool {
	_, _, found := s.Lookup(sectionName, key)
	return found
}

// Sections returns section names in first-written order with their stored case.
func (s *Store) Sections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.order))
	for _, lower := range s.order {
		out = append(out, s.sections[lower].name)
	}
	return out
}

// Keys returns the sorted keys stored under a section.
func (s *Store) Keys(sectionName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sections[strings.ToLower(sectionName)]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(sec.values))
	for key := range sec.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RecaseSection changes the stored case of a section name. Names that differ by
// more than case are rejected.
func (s *Store) RecaseSection(oldName, newName string) error {
	if !strings.EqualFold(oldName, newName) {
		return fmt.Errorf("%w: %q -> %q", ErrSectionChange, oldName, newName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sec, ok := s.sections[strings.ToLower(oldName)]; ok {
		sec.name = newName
	}
	return nil
}

// Replace swaps the store contents for the given document.
func (s *Store) Replace(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections = make(map[string]*section, len(doc))
	s.order = nil
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sec := s.sectionLocked(name)
		for key, value := range doc[name] {
			sec.values[strings.ToLower(key)] = value
		}
	}
}

// Snapshot returns a deep copy of the store contents suitable for saving.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := make(Document, len(s.sections))
	for _, lower := range s.order {
		sec := s.sections[lower]
		values := make(map[string]any, len(sec.values))
		for key, value := range sec.values {
			values[key] = copyValue(value)
		}
		doc[sec.name] = values
	}
	return doc
}

// Load replaces the store contents with what the source provides.
func (s *Store) Load(src Source) error {
	doc, err := src.Load()
	if err != nil {
		return err
	}
	s.Replace(doc)
	return nil
}

// Save writes the store contents through the source.
func (s *Store) Save(src Source) error {
	return src.Save(s.Snapshot())
}

func (s *Store) sectionLocked(name string) *section {
	lower := strings.ToLower(name)
	sec, ok := s.sections[lower]
	if !ok {
		sec = &section{name: name, values: make(map[string]any)}
		s.sections[lower] = sec
		s.order = append(s.order, lower)
	}
	return sec
}

func copyValue(value any) any {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		copy(out, v)
		return out
	default:
		return v
	}
}
