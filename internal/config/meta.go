package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"headphones/internal/logging"
)

// Meta holds per-option presentation flags read from the meta file that sits
// next to the config file (config.toml -> config.meta.toml).
type Meta struct {
	flags map[string]map[string]string
}

// MetaPath derives the meta file path for a config path.
func MetaPath(configPath string) string {
	ext := filepath.Ext(configPath)
	return strings.TrimSuffix(configPath, ext) + ".meta" + ext
}

// LoadMeta reads the meta file. A missing file yields empty metadata.
func LoadMeta(configPath string) (*Meta, error) {
	doc, err := SourceFor(MetaPath(configPath)).Load()
	if err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}
	meta := &Meta{flags: make(map[string]map[string]string, len(doc))}
	for sectionName, values := range doc {
		section := make(map[string]string, len(values))
		for key, value := range values {
			text, _ := ToString(value)
			section[strings.ToLower(key)] = text
		}
		meta.flags[strings.ToLower(sectionName)] = section
	}
	return meta, nil
}

// Apply sets read-only and visibility flags on registered options. Unknown
// options and tokens are logged and ignored.
func (m *Meta) Apply(reg *Registry, logger *slog.Logger) {
	if m == nil || reg == nil {
		return
	}
	logger = logging.NewComponentLogger(logger, "config-meta")
	for sectionName, values := range m.flags {
		for key, tokens := range values {
			entry, ok := reg.Find(sectionName, key)
			if !ok {
				logger.Info("meta entry for unknown option ignored",
					logging.String("section", sectionName),
					logging.String("key", key))
				continue
			}
			for _, token := range splitTokens(tokens) {
				switch token {
				case "ro", "readonly":
					entry.SetReadOnly(true)
				case "rw":
					entry.SetReadOnly(false)
				case "visible", "show":
					entry.SetVisible(true)
				case "invisible", "hide", "hidden":
					entry.SetVisible(false)
				default:
					logging.WarnWithContext(logger, "unknown meta token", "config_meta_token",
						logging.String("option", entry.AppKey()),
						logging.String("token", token),
						logging.String(logging.FieldErrorHint, "use ro, rw, visible or hidden"),
						logging.String(logging.FieldImpact, "token ignored"),
					)
				}
			}
		}
	}
}

func splitTokens(value string) []string {
	fields := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	return fields
}
