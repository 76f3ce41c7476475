package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/go-homedir"

	"headphones/internal/logging"
)

const defaultConfigPath = "~/.config/headphones/config.toml"

// Resolve HOME on every call.
func init() { homedir.DisableCache = true }

// Config ties the persisted store to the option catalog.
type Config struct {
	Path     string
	Exists   bool
	Store    *Store
	Registry *Registry
	Options  *Options

	source Source
	logger *slog.Logger
	saveMu sync.Mutex
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Open locates and loads a configuration file, binds every option, applies the
// meta file and validates the result. A missing file is not an error: options
// fall back to their defaults.
func Open(path string, logger *slog.Logger) (*Config, error) {
	resolved, exists, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Path:     resolved,
		Exists:   exists,
		Store:    NewStore(logger),
		Registry: NewRegistry(),
		Options:  NewOptions(),
		source:   SourceFor(resolved),
		logger:   logging.NewComponentLogger(logger, "config"),
	}
	if err := cfg.Options.Register(cfg.Registry); err != nil {
		return nil, err
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}

	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) load() error {
	if err := c.Store.Load(c.source); err != nil {
		return err
	}
	checkSectionSpelling(c.logger, c.Store.Sections(), c.Registry.Sections())
	if err := c.Registry.BindAll(c.Store); err != nil {
		return err
	}
	meta, err := LoadMeta(c.Path)
	if err != nil {
		return err
	}
	meta.Apply(c.Registry, c.logger)
	return nil
}

// Reload re-reads the file and meta file into a staged store and validates
// it there. Only a valid document replaces the live store; otherwise the
// current values stay untouched. Options stay bound and keys that vanished
// are re-seeded from defaults.
func (c *Config) Reload() (Settings, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	doc, err := c.source.Load()
	if err != nil {
		return Settings{}, err
	}
	staged := NewStore(c.Store.Logger())
	staged.Replace(doc)
	checkSectionSpelling(c.logger, staged.Sections(), c.Registry.Sections())

	options := NewOptions()
	registry := NewRegistry()
	if err := options.Register(registry); err != nil {
		return Settings{}, err
	}
	if err := registry.BindAll(staged); err != nil {
		return Settings{}, err
	}
	settings, err := options.Snapshot()
	if err != nil {
		return Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	meta, err := LoadMeta(c.Path)
	if err != nil {
		return Settings{}, err
	}

	c.Store.Replace(staged.Snapshot())
	if err := c.Registry.BindAll(c.Store); err != nil {
		return Settings{}, err
	}
	meta.Apply(c.Registry, c.logger)
	return settings, nil
}

// Save persists the store.
func (c *Config) Save() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if err := c.Store.Save(c.source); err != nil {
		return err
	}
	c.Exists = true
	return nil
}

// Settings snapshots the typed option values.
func (c *Config) Settings() (Settings, error) {
	return c.Options.Snapshot()
}

// MetaPath returns the meta file path for this config.
func (c *Config) MetaPath() string {
	return MetaPath(c.Path)
}

// EnsureDirectories creates the data directory and any configured download
// directories.
func (s Settings) EnsureDirectories() error {
	for _, dir := range []string{s.General.DataDir, s.Torrent.DownloadDir, s.Usenet.DownloadDir, s.Torrent.BlackholeDir, s.Usenet.BlackholeDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ResolvePath picks the config file: the explicit path, then the user config
// directory, then headphones.toml in the working directory.
func ResolvePath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := fileExists(expanded)
		if err != nil {
			return "", false, err
		}
		return expanded, exists, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("headphones.toml")
	if err != nil {
		return "", false, err
	}

	if ok, _ := fileExists(defaultPath); ok {
		return defaultPath, true, nil
	}
	if ok, _ := fileExists(projectPath); ok {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat config: %w", err)
	}
	return !info.IsDir(), nil
}

// CreateSample writes a configuration file holding every default.
func CreateSample(path string) error {
	store := NewStore(nil)
	reg := NewRegistry()
	if err := NewOptions().Register(reg); err != nil {
		return err
	}
	if err := reg.BindAll(store); err != nil {
		return err
	}
	if err := store.Save(SourceFor(path)); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	expanded, err := homedir.Expand(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	cleaned := filepath.Clean(expanded)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
