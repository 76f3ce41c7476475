package viewmodel

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"headphones/internal/config"
	"headphones/internal/logging"
)

var (
	// ErrDuplicateKey is returned when two fields declare the same form key.
	ErrDuplicateKey = errors.New("duplicate ui key")
	// ErrNotAnOption is returned when a non-field node is registered.
	ErrNotAnOption = errors.New("node is not an option field")
)

// formMu serializes form submissions across parsers; they share one store.
var formMu sync.Mutex

// Parser maps form keys to fields and applies submitted forms.
type Parser struct {
	mu     sync.RWMutex
	fields map[string]Field
	logger *slog.Logger
}

// NewParser returns an empty parser.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{
		fields: make(map[string]Field),
		logger: logging.NewComponentLogger(logger, "viewparser"),
	}
}

// Register adds a field and its children. Every form key must be unique; on
// error nothing from the subtree is registered.
func (p *Parser) Register(node Node) error {
	field, ok := node.(Field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAnOption, node.Kind())
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	staged := make(map[string]Field)
	if err := p.stage(field, staged); err != nil {
		return err
	}
	for key, owner := range staged {
		p.fields[key] = owner
	}
	return nil
}

// stage collects the keys of field and its field children into staged.
func (p *Parser) stage(field Field, staged map[string]Field) error {
	for _, key := range field.UIKeys() {
		owner, exists := p.fields[key]
		if !exists {
			owner, exists = staged[key]
		}
		if exists {
			return fmt.Errorf("%w: %s for option %s (owned by %s)",
				ErrDuplicateKey, key, field.Entry().AppKey(), owner.Entry().AppKey())
		}
		staged[key] = field
	}
	for _, child := range field.Children() {
		childField, isField := child.(Field)
		if !isField {
			continue
		}
		if err := p.stage(childField, staged); err != nil {
			return err
		}
	}
	return nil
}

// RegisterTree registers every field found under the given tabs.
func (p *Parser) RegisterTree(tabs ...*Tab) error {
	for _, tab := range tabs {
		for _, block := range tab.Blocks {
			for _, node := range block.Nodes {
				if _, isField := node.(Field); !isField {
					continue
				}
				if err := p.Register(node); err != nil {
					return fmt.Errorf("tab %s block %s: %w", tab.ID, block.ID, err)
				}
			}
		}
	}
	return nil
}

// Keys returns every registered form key, sorted.
func (p *Parser) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.fields))
	for key := range p.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Field returns the field owning a form key.
func (p *Parser) Field(key string) (Field, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f, ok := p.fields[key]
	return f, ok
}

type pending struct {
	field  Field
	values map[string][]string
}

// Accept applies a submitted form and returns how many options changed.
//
// All keys are grouped by option before any option is set, so an option with
// several keys sees them together. Unknown keys and keys of read-only options
// are skipped. Values a field cannot interpret are logged and skipped; store
// failures are returned after the remaining options have been applied.
func (p *Parser) Accept(form map[string][]string) (int, error) {
	formMu.Lock()
	defer formMu.Unlock()

	grouped := make(map[string]*pending)
	var order []string

	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field, ok := p.Field(key)
		if !ok {
			p.logger.Debug("unknown form key skipped", logging.String("key", key))
			continue
		}
		entry := field.Entry()
		if entry.ReadOnly() {
			p.logger.Info("read-only option submitted; skipped",
				logging.String("section", entry.Section()),
				logging.String("option", entry.AppKey()))
			continue
		}
		appKey := entry.AppKey()
		group, ok := grouped[appKey]
		if !ok {
			group = &pending{field: field, values: make(map[string][]string)}
			grouped[appKey] = group
			order = append(order, appKey)
		}
		group.values[key] = form[key]
	}

	changed := 0
	var errs []error
	for _, appKey := range order {
		group := grouped[appKey]
		entry := group.field.Entry()

		raw, err := group.field.FormToValue(group.values)
		if err != nil {
			logging.WarnWithContext(p.logger, "form value rejected", "form_value_invalid",
				logging.String("option", appKey),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "submit a value the field accepts"),
				logging.String(logging.FieldImpact, "option left unchanged"),
			)
			continue
		}
		next, err := entry.Coerce(raw)
		if err != nil {
			logging.WarnWithContext(p.logger, "form value rejected", "form_value_invalid",
				logging.String("option", appKey),
				logging.Error(err),
				logging.String(logging.FieldImpact, "option left unchanged"),
			)
			continue
		}
		current, err := entry.Value()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if config.Equal(current, next) {
			continue
		}
		if err := entry.SetValue(next); err != nil {
			errs = append(errs, err)
			continue
		}
		p.logger.Info("option changed",
			logging.String("section", entry.Section()),
			logging.String("option", appKey),
			logging.String("old", display(group.field, current)),
			logging.String("new", display(group.field, next)),
		)
		changed++
	}
	return changed, errors.Join(errs...)
}

func display(field Field, value any) string {
	if secret, ok := field.(Secret); ok && secret.Secret() {
		return "********"
	}
	return fmt.Sprint(value)
}
