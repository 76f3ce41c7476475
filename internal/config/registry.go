package config

import (
	"fmt"
	"strings"
)

// Registry maps app keys to their options. It replaces attribute-style lookup
// with an explicit table.
type Registry struct {
	entries map[string]Entry
	order   []Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds an option. App keys must be unique.
func (r *Registry) Register(entries ...Entry) error {
	for _, entry := range entries {
		if entry == nil {
			return fmt.Errorf("register option: nil entry")
		}
		key := strings.ToUpper(entry.AppKey())
		if key == "" {
			return fmt.Errorf("register option: empty app key")
		}
		if _, exists := r.entries[key]; exists {
			return fmt.Errorf("register option: duplicate app key %s", key)
		}
		r.entries[key] = entry
		r.order = append(r.order, entry)
	}
	return nil
}

// Lookup returns the option registered under appKey.
func (r *Registry) Lookup(appKey string) (Entry, bool) {
	entry, ok := r.entries[strings.ToUpper(strings.TrimSpace(appKey))]
	return entry, ok
}

// Find returns the option stored under section/key, matching case-insensitively.
func (r *Registry) Find(section, key string) (Entry, bool) {
	for _, entry := range r.order {
		if strings.EqualFold(entry.Section(), section) && strings.EqualFold(entry.StorageKey(), key) {
			return entry, true
		}
	}
	return nil, false
}

// Entries returns options in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.order))
	copy(out, r.order)
	return out
}

// Sections returns the distinct section names used by registered options.
func (r *Registry) Sections() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, entry := range r.order {
		lower := strings.ToLower(entry.Section())
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, entry.Section())
	}
	return out
}

// BindAll binds every option to the store.
func (r *Registry) BindAll(store *Store) error {
	for _, entry := range r.order {
		if err := entry.Bind(store); err != nil {
			return fmt.Errorf("bind %s: %w", entry.AppKey(), err)
		}
	}
	return nil
}
