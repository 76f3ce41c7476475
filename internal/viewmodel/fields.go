package viewmodel

import (
	"fmt"
	"strconv"
	"strings"

	"headphones/internal/config"
)

// FormError reports a submitted value a field could not interpret.
type FormError struct {
	Key   string
	Value string
	Err   error
}

func (e *FormError) Error() string {
	return fmt.Sprintf("form value %s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *FormError) Unwrap() error { return e.Err }

// Presentation carries the labels shown next to a field.
type Presentation struct {
	Label   string
	Caption string
	Tooltip string
}

type base struct {
	entry    config.Entry
	children []Node
	Presentation
}

func (b *base) Entry() config.Entry { return b.entry }
func (b *base) Children() []Node    { return b.children }
func (b *base) UIKeys() []string    { return []string{UIKey(b.entry.AppKey())} }

func (b *base) single(fields map[string][]string) (string, string) {
	key := UIKey(b.entry.AppKey())
	values := fields[key]
	if len(values) == 0 {
		return key, ""
	}
	return key, values[len(values)-1]
}

// String is a free text field.
type String struct {
	base
	MaxLength int
}

// NewString creates a text field. Children are shown beneath it.
func NewString(entry config.Entry, p Presentation, children ...Node) *String {
	return &String{base: base{entry: entry, children: children, Presentation: p}}
}

func (*String) Kind() string { return "string" }

func (f *String) FormToValue(fields map[string][]string) (any, error) {
	key, value := f.single(fields)
	if f.MaxLength > 0 && len(value) > f.MaxLength {
		return nil, &FormError{Key: key, Value: value, Err: fmt.Errorf("longer than %d characters", f.MaxLength)}
	}
	return value, nil
}

// Password is a text field whose value is masked in views and logs.
type Password struct {
	String
}

// NewPassword creates a masked text field.
func NewPassword(entry config.Entry, p Presentation) *Password {
	return &Password{String: String{base: base{entry: entry, Presentation: p}}}
}

func (*Password) Kind() string { return "password" }
func (*Password) Secret() bool { return true }

// PathField is a text field holding a filesystem path.
type PathField struct {
	base
}

// NewPath creates a path field.
func NewPath(entry config.Entry, p Presentation) *PathField {
	return &PathField{base: base{entry: entry, Presentation: p}}
}

func (*PathField) Kind() string { return "path" }

func (f *PathField) FormToValue(fields map[string][]string) (any, error) {
	_, value := f.single(fields)
	return config.Path(strings.TrimSpace(value)), nil
}

// Number is an integer field with optional bounds.
type Number struct {
	base
	Min *int
	Max *int
}

// NewNumber creates an integer field.
func NewNumber(entry config.Entry, p Presentation) *Number {
	return &Number{base: base{entry: entry, Presentation: p}}
}

// Bounded sets the accepted range.
func (f *Number) Bounded(lo, hi int) *Number {
	f.Min, f.Max = &lo, &hi
	return f
}

func (*Number) Kind() string { return "number" }

func (f *Number) FormToValue(fields map[string][]string) (any, error) {
	key, value := f.single(fields)
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, &FormError{Key: key, Value: value, Err: fmt.Errorf("not an integer")}
	}
	if (f.Min != nil && n < *f.Min) || (f.Max != nil && n > *f.Max) {
		return nil, &FormError{Key: key, Value: value, Err: fmt.Errorf("out of range")}
	}
	return n, nil
}

// Bool is a checkbox. Only "1"/"0" and "on"/"off" are accepted.
type Bool struct {
	base
}

// NewBool creates a checkbox field.
func NewBool(entry config.Entry, p Presentation) *Bool {
	return &Bool{base: base{entry: entry, Presentation: p}}
}

func (*Bool) Kind() string { return "bool" }

func (f *Bool) FormToValue(fields map[string][]string) (any, error) {
	key, value := f.single(fields)
	return parseCheckbox(key, value)
}

func parseCheckbox(key, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "on":
		return true, nil
	case "0", "off":
		return false, nil
	}
	return false, &FormError{Key: key, Value: value, Err: fmt.Errorf("expected 1 or 0")}
}

// Switch is a checkbox that enables its children.
type Switch struct {
	Bool
}

// NewSwitch creates a checkbox owning child nodes.
func NewSwitch(entry config.Entry, p Presentation, children ...Node) *Switch {
	return &Switch{Bool: Bool{base: base{entry: entry, children: children, Presentation: p}}}
}

func (*Switch) Kind() string { return "switch" }

// Choice is one dropdown item. Children apply only while it is selected.
type Choice struct {
	Value    string
	Label    string
	Children []Node
}

// Dropdown selects one of a fixed set of values.
type Dropdown struct {
	base
	Choices []Choice
}

// NewDropdown creates a selector. Child nodes of every choice belong to the
// dropdown.
func NewDropdown(entry config.Entry, p Presentation, choices ...Choice) *Dropdown {
	var children []Node
	for _, c := range choices {
		children = append(children, c.Children...)
	}
	return &Dropdown{base: base{entry: entry, children: children, Presentation: p}, Choices: choices}
}

func (*Dropdown) Kind() string { return "dropdown" }

func (f *Dropdown) FormToValue(fields map[string][]string) (any, error) {
	key, value := f.single(fields)
	for _, c := range f.Choices {
		if c.Value == value {
			return value, nil
		}
	}
	return nil, &FormError{Key: key, Value: value, Err: fmt.Errorf("not one of the choices")}
}

// Active returns the choice matching the option's current value.
func (f *Dropdown) Active() (Choice, bool) {
	current, err := f.entry.Value()
	if err != nil {
		return Choice{}, false
	}
	for _, c := range f.Choices {
		if c.Value == fmt.Sprint(current) {
			return c, true
		}
	}
	return Choice{}, false
}

// Combobox is free text with suggested values.
type Combobox struct {
	base
	Suggestions []string
}

// NewCombobox creates a text field with suggestions.
func NewCombobox(entry config.Entry, p Presentation, suggestions ...string) *Combobox {
	return &Combobox{base: base{entry: entry, Presentation: p}, Suggestions: suggestions}
}

func (*Combobox) Kind() string { return "combobox" }

func (f *Combobox) FormToValue(fields map[string][]string) (any, error) {
	_, value := f.single(fields)
	return strings.TrimSpace(value), nil
}

// CheckboxList maps one checkbox per item onto a list option. Each item has
// its own key: the option key plus "_" plus the item.
type CheckboxList struct {
	base
	Items []string
}

// NewCheckboxList creates a multi-key list field.
func NewCheckboxList(entry config.Entry, p Presentation, items ...string) *CheckboxList {
	return &CheckboxList{base: base{entry: entry, Presentation: p}, Items: items}
}

func (*CheckboxList) Kind() string { return "checkbox_list" }

func (f *CheckboxList) UIKeys() []string {
	keys := make([]string, 0, len(f.Items))
	for _, item := range f.Items {
		keys = append(keys, f.itemKey(item))
	}
	return keys
}

func (f *CheckboxList) itemKey(item string) string {
	return UIKey(f.entry.AppKey()) + "_" + strings.ToLower(item)
}

// FormToValue returns the checked items in declaration order. Items whose
// key was not submitted count as unchecked.
func (f *CheckboxList) FormToValue(fields map[string][]string) (any, error) {
	selected := make([]string, 0, len(f.Items))
	for _, item := range f.Items {
		key := f.itemKey(item)
		values, ok := fields[key]
		if !ok || len(values) == 0 {
			continue
		}
		checked, err := parseCheckbox(key, values[len(values)-1])
		if err != nil {
			return nil, err
		}
		if checked {
			selected = append(selected, item)
		}
	}
	return selected, nil
}

// Range is a min/max pair stored as a two element integer list. Each bound
// has its own key; a bound that was not submitted keeps its current value.
type Range struct {
	base
}

// NewRange creates a min/max field.
func NewRange(entry config.Entry, p Presentation) *Range {
	return &Range{base: base{entry: entry, Presentation: p}}
}

func (*Range) Kind() string { return "range" }

func (f *Range) UIKeys() []string {
	key := UIKey(f.entry.AppKey())
	return []string{key + "_min", key + "_max"}
}

func (f *Range) FormToValue(fields map[string][]string) (any, error) {
	bounds := []int{0, 0}
	if current, err := f.entry.Value(); err == nil {
		if pair, ok := current.([]int); ok && len(pair) == 2 {
			copy(bounds, pair)
		}
	}
	for i, key := range f.UIKeys() {
		values := fields[key]
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, &FormError{Key: key, Value: value, Err: fmt.Errorf("not an integer")}
		}
		bounds[i] = n
	}
	return bounds, nil
}

// Internal is an option that never appears in the form. It is marked
// read-only and hidden when created.
type Internal struct {
	base
}

// NewInternal wraps an internal option.
func NewInternal(entry config.Entry) *Internal {
	entry.SetReadOnly(true)
	entry.SetVisible(false)
	return &Internal{base: base{entry: entry}}
}

func (*Internal) Kind() string { return "internal" }

func (f *Internal) FormToValue(fields map[string][]string) (any, error) {
	_, value := f.single(fields)
	return value, nil
}
