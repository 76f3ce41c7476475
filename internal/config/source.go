package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Source loads and saves the persisted configuration document.
type Source interface {
	Load() (Document, error)
	Save(doc Document) error
}

// SourceFor picks the file format from the path extension. TOML is the default.
func SourceFor(path string) Source {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return &YAMLFile{Path: path}
	default:
		return &TOMLFile{Path: path}
	}
}

// TOMLFile stores one TOML table per section.
type TOMLFile struct {
	Path string
}

// Load reads the file. A missing file yields an empty document.
func (f *TOMLFile) Load() (Document, error) {
	data, err := readOptional(f.Path)
	if err != nil || data == nil {
		return Document{}, err
	}
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return documentFrom(raw)
}

// Save writes the document atomically under a file lock.
func (f *TOMLFile) Save(doc Document) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeLocked(f.Path, data)
}

// YAMLFile stores one mapping per section.
type YAMLFile struct {
	Path string
}

// Load reads the file. A missing file yields an empty document.
func (f *YAMLFile) Load() (Document, error) {
	data, err := readOptional(f.Path)
	if err != nil || data == nil {
		return Document{}, err
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return documentFrom(raw)
}

// Save writes the document atomically under a file lock.
func (f *YAMLFile) Save(doc Document) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeLocked(f.Path, buf.Bytes())
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

func documentFrom(raw map[string]any) (Document, error) {
	doc := make(Document, len(raw))
	for name, value := range raw {
		table, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parse config: top-level key %q is not a section", name)
		}
		values := make(map[string]any, len(table))
		for key, item := range table {
			normalized, err := normalizePrimitive(item)
			if err != nil {
				return nil, fmt.Errorf("parse config: [%s][%s]: %w", name, key, err)
			}
			values[strings.ToLower(key)] = normalized
		}
		doc[name] = values
	}
	return doc, nil
}

func normalizePrimitive(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	case fmt.Stringer:
		return v.String(), nil
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			normalized, err := normalizePrimitive(item)
			if err != nil {
				return nil, err
			}
			if _, nested := normalized.([]any); nested {
				return nil, errors.New("nested lists are not supported")
			}
			out = append(out, normalized)
		}
		return out, nil
	case map[string]any:
		return nil, errors.New("nested tables are not supported")
	default:
		return fmt.Sprint(v), nil
	}
}

func writeLocked(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock config: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
