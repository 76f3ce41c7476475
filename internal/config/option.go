package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"headphones/internal/logging"
)

var (
	// ErrUnbound is reported when an option is used before Bind.
	ErrUnbound = errors.New("was not bound to config")
	// ErrMissing is reported when a bound option's section or key is absent.
	ErrMissing = errors.New("does not exist in config")
	// ErrSectionChange is reported when an option is moved to another section.
	ErrSectionChange = errors.New("option section cannot be changed")
)

// ConfigError describes a wiring mistake around an option: it was never bound,
// or its storage disappeared from the store.
type ConfigError struct {
	AppKey  string
	Section string
	Key     string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("option %s [%s][%s] %v", e.AppKey, e.Section, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Entry is the type-erased view of an option used by the registry, the meta
// file and the form parser.
type Entry interface {
	AppKey() string
	StorageKey() string
	Section() string
	SetSection(name string) error
	Bind(store *Store) error
	Bound() bool
	Value() (any, error)
	SetValue(value any) error
	Coerce(value any) (any, error)
	DefaultValue() any
	ReadOnly() bool
	SetReadOnly(readOnly bool)
	Visible() bool
	SetVisible(visible bool)
}

// Option binds one named value of type T to a section of the store.
type Option[T any] struct {
	appKey   string
	section  string
	def      T
	convert  Converter[T]
	readOnly bool
	hidden   bool

	mu    sync.RWMutex
	store *Store
}

// NewOption declares an option. The app key is upper-cased; its lower-cased
// form is the storage key.
func NewOption[T any](appKey, section string, def T, convert Converter[T]) *Option[T] {
	return &Option[T]{
		appKey:  strings.ToUpper(strings.TrimSpace(appKey)),
		section: section,
		def:     def,
		convert: convert,
	}
}

// AppKey returns the upper-case identifier.
func (o *Option[T]) AppKey() string { return o.appKey }

// StorageKey returns the key used inside the section.
func (o *Option[T]) StorageKey() string { return strings.ToLower(o.appKey) }

// Section returns the current section name.
func (o *Option[T]) Section() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.section
}

// SetSection assigns the section. An unset section accepts any name; an
// existing one only accepts a change of letter case.
func (o *Option[T]) SetSection(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.section != "" && !strings.EqualFold(o.section, name) {
		return fmt.Errorf("%w: %s is in [%s], not [%s]", ErrSectionChange, o.appKey, o.section, name)
	}
	if o.store != nil && o.section != "" {
		if err := o.store.RecaseSection(o.section, name); err != nil {
			return err
		}
	}
	o.section = name
	return nil
}

// Default returns the declared default.
func (o *Option[T]) Default() T { return o.def }

// DefaultValue returns the default as an untyped value.
func (o *Option[T]) DefaultValue() any { return o.def }

// ReadOnly reports whether form submissions may change the option.
func (o *Option[T]) ReadOnly() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.readOnly
}

// SetReadOnly marks the option read-only for form submissions.
func (o *Option[T]) SetReadOnly(readOnly bool) {
	o.mu.Lock()
	o.readOnly = readOnly
	o.mu.Unlock()
}

// Visible reports whether the option is shown in settings views.
func (o *Option[T]) Visible() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return !o.hidden
}

// SetVisible toggles visibility in settings views.
func (o *Option[T]) SetVisible(visible bool) {
	o.mu.Lock()
	o.hidden = !visible
	o.mu.Unlock()
}

// Bind attaches the option to a store and seeds the default when the key is
// not present yet.
func (o *Option[T]) Bind(store *Store) error {
	if store == nil {
		return &ConfigError{AppKey: o.appKey, Section: o.Section(), Key: o.StorageKey(), Err: ErrUnbound}
	}
	o.mu.Lock()
	o.store = store
	o.mu.Unlock()
	if !store.Has(o.Section(), o.StorageKey()) {
		return o.Set(o.def)
	}
	return nil
}

// Bound reports whether Bind has been called.
func (o *Option[T]) Bound() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.store != nil
}

// Get reads the typed value. Stored values that cannot be converted fall back
// to the default with a warning; only wiring mistakes are returned as errors.
func (o *Option[T]) Get() (T, error) {
	var zero T
	store, err := o.boundStore()
	if err != nil {
		return zero, err
	}
	raw, hasSection, found := store.Lookup(o.Section(), o.StorageKey())
	if !hasSection || !found {
		return zero, o.configError(ErrMissing)
	}
	if typed, ok := raw.(T); ok {
		return typed, nil
	}
	value, convErr := o.convert(raw)
	if convErr == nil {
		return value, nil
	}
	logging.WarnWithContext(store.Logger(), "config value invalid; using default", "config_value_invalid",
		logging.String("option", o.appKey),
		logging.String("section", o.Section()),
		logging.String("stored_value", fmt.Sprint(raw)),
		logging.Error(convErr),
		logging.String(logging.FieldErrorHint, "fix the value in the config file"),
		logging.String(logging.FieldImpact, "default value is used"),
	)
	return o.defaultValue(), nil
}

// Set converts and stores a value. Values outside the storable primitive kinds
// are stored as their string form.
func (o *Option[T]) Set(value any) error {
	store, err := o.boundStore()
	if err != nil {
		return err
	}
	var stored any
	if isStorable(value) {
		converted, convErr := o.convert(value)
		if convErr != nil {
			return fmt.Errorf("set %s: %w", o.appKey, convErr)
		}
		stored = primitive(converted)
	} else {
		stored = fmt.Sprint(value)
	}
	store.Put(o.Section(), o.StorageKey(), stored)
	return nil
}

// Value implements Entry.
func (o *Option[T]) Value() (any, error) {
	return o.Get()
}

// SetValue implements Entry.
func (o *Option[T]) SetValue(value any) error {
	return o.Set(value)
}

// Coerce converts a candidate value to the option's type without storing it.
func (o *Option[T]) Coerce(value any) (any, error) {
	if typed, ok := value.(T); ok {
		return typed, nil
	}
	converted, err := o.convert(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.appKey, err)
	}
	return converted, nil
}

// Equal compares a candidate value against the option's current value. Nil
// and empty slices of the same type are equal.
func Equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	return va.Kind() == reflect.Slice && vb.Kind() == reflect.Slice &&
		va.Type() == vb.Type() && va.Len() == 0 && vb.Len() == 0
}

func (o *Option[T]) defaultValue() T {
	if o.convert == nil {
		return o.def
	}
	if value, err := o.convert(o.def); err == nil {
		return value
	}
	return o.def
}

func (o *Option[T]) boundStore() (*Store, error) {
	o.mu.RLock()
	store := o.store
	o.mu.RUnlock()
	if store == nil {
		return nil, o.configError(ErrUnbound)
	}
	return store, nil
}

func (o *Option[T]) configError(err error) error {
	return &ConfigError{AppKey: o.appKey, Section: o.Section(), Key: o.StorageKey(), Err: err}
}
