package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Path marks a configuration value as a filesystem path. It is a distinct type
// so path-valued options can be told apart from plain strings at compile time.
type Path string

// String returns the raw path text.
func (p Path) String() string { return string(p) }

// Converter turns a raw stored value into an option's semantic type.
type Converter[T any] func(raw any) (T, error)

// ErrConversion marks values a converter cannot represent.
var ErrConversion = errors.New("value conversion failed")

var (
	falseTokens = map[string]struct{}{"": {}, "0": {}, "false": {}, "f": {}, "no": {}, "n": {}, "off": {}, "-": {}}
	trueTokens  = map[string]struct{}{"1": {}, "true": {}, "t": {}, "yes": {}, "y": {}, "on": {}, "+": {}}
)

// BoolExt interprets common textual flags and otherwise falls back to
// truthiness. It never fails.
func BoolExt(raw any) bool {
	if s, ok := stringOf(raw); ok {
		token := strings.ToLower(s)
		if _, ok := falseTokens[token]; ok {
			return false
		}
		if _, ok := trueTokens[token]; ok {
			return true
		}
		return s != ""
	}
	return truthy(raw)
}

// ToBoolExt adapts BoolExt to the Converter signature.
func ToBoolExt(raw any) (bool, error) {
	return BoolExt(raw), nil
}

// ToBool converts with plain truthiness: non-empty strings and lists and
// non-zero numbers are true.
func ToBool(raw any) (bool, error) {
	return truthy(raw), nil
}

// ToInt converts numbers, booleans and numeric strings to int. Floats are
// truncated toward zero.
func ToInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int", ErrConversion, v)
		}
		return int(v), nil
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string, Path:
		s, _ := stringOf(v)
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrConversion, s)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("%w: nil is not an integer", ErrConversion)
	default:
		return 0, fmt.Errorf("%w: %T is not an integer", ErrConversion, raw)
	}
}

func floatToInt(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrConversion, v)
	}
	return int(v), nil
}

// ToFloat converts numbers, booleans and numeric strings to float64.
func ToFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string, Path:
		s, _ := stringOf(v)
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrConversion, s)
		}
		return f, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	n, err := ToInt(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %T is not a number", ErrConversion, raw)
	}
	return float64(n), nil
}

// ToString renders any value as text. Strings pass through untouched.
func ToString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case Path:
		return string(v), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// ToPath tags a value as a path. Applying it to a Path returns the same value.
func ToPath(raw any) (Path, error) {
	switch v := raw.(type) {
	case Path:
		return v, nil
	case string:
		return Path(v), nil
	case nil:
		return "", nil
	default:
		return Path(fmt.Sprint(v)), nil
	}
}

// ToStringList converts lists and comma separated strings to a string slice.
func ToStringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := ToString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case string, Path:
		s, _ := stringOf(v)
		return SplitList(s), nil
	case nil:
		return []string{}, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a list", ErrConversion, raw)
	}
}

// ToIntList converts lists and comma separated strings to an int slice.
func ToIntList(raw any) ([]int, error) {
	if v, ok := raw.([]int); ok {
		return v, nil
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	default:
		strs, err := ToStringList(raw)
		if err != nil {
			return nil, err
		}
		for _, s := range strs {
			items = append(items, s)
		}
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := ToInt(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// SplitList splits a comma separated string, trimming blanks and dropping
// empty entries.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func stringOf(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case Path:
		return string(v), true
	default:
		return "", false
	}
}

func truthy(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case Path:
		return v != ""
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case []int:
		return len(v) > 0
	case float32:
		return v != 0
	case float64:
		return v != 0
	}
	if n, err := ToInt(raw); err == nil {
		return n != 0
	}
	return true
}

// isStorable reports whether a value is one of the primitive kinds the store
// persists without stringifying.
func isStorable(v any) bool {
	switch v.(type) {
	case int, int64, float64, string, bool, []any, []string, []int, Path:
		return true
	default:
		return false
	}
}

// primitive flattens typed option values to what the persisted document holds.
func primitive(v any) any {
	switch val := v.(type) {
	case Path:
		return string(val)
	case int:
		return int64(val)
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = int64(n)
		}
		return out
	default:
		return v
	}
}
