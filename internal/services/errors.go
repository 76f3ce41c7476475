package services

import (
	"errors"
	"strings"
)

// Markers classify failures. Every error built by Wrap matches exactly one
// of them with errors.Is.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// StepError is a classified failure of one operation within a step such as
// "search" or "postprocess".
type StepError struct {
	Marker  error
	Step    string
	Op      string
	Message string
	Err     error
}

// Wrap builds a *StepError. A nil marker counts as ErrTransient.
func Wrap(marker error, step, op, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &StepError{
		Marker:  marker,
		Step:    strings.TrimSpace(step),
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Err:     err,
	}
}

func (e *StepError) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	for _, part := range []string{e.Step, e.Op, e.Message} {
		if part != "" {
			b.WriteString(": ")
			b.WriteString(part)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Hint suggests what the operator should do about err.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "fix the setting named in the error and reload"
	case errors.Is(err, ErrNotFound):
		return "add the album to the catalog with `headphones album add`"
	case errors.Is(err, ErrValidation):
		return "the input was rejected; check the named file or result"
	case errors.Is(err, ErrExternalTool):
		return "check the indexer, download client or encoder named in the error"
	default:
		return "retried on the next scheduled run"
	}
}
