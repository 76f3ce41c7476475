package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"headphones/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig opens a config file inside a unique temp directory. The data,
// download and destination directories point into that directory; options
// are applied afterwards.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg, err := config.Open(filepath.Join(base, "config.toml"), nil)
	if err != nil {
		t.Fatalf("config.Open: %v", err)
	}
	builder := &configBuilder{t: t, baseDir: base, cfg: cfg}

	builder.set("DATA_DIR", config.Path(filepath.Join(base, "data")))
	builder.set("DOWNLOAD_DIR", config.Path(filepath.Join(base, "downloads", "nzb")))
	builder.set("DOWNLOAD_TORRENT_DIR", config.Path(filepath.Join(base, "downloads", "torrent")))
	builder.set("DESTINATION_DIR", config.Path(filepath.Join(base, "music")))
	builder.set("LOG_FILE", false)

	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

func (b *configBuilder) set(appKey string, value any) {
	b.t.Helper()
	entry, ok := b.cfg.Registry.Lookup(appKey)
	if !ok {
		b.t.Fatalf("unknown option %s", appKey)
	}
	if err := entry.SetValue(value); err != nil {
		b.t.Fatalf("set %s: %v", appKey, err)
	}
}

// WithOption sets any registered option by app key.
func WithOption(appKey string, value any) ConfigOption {
	return func(b *configBuilder) {
		b.set(appKey, value)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Path)
}

// Settings snapshots and validates the config, failing the test on error.
func Settings(t testing.TB, cfg *config.Config) config.Settings {
	t.Helper()
	settings, err := cfg.Settings()
	if err != nil {
		t.Fatalf("cfg.Settings: %v", err)
	}
	if err := settings.Validate(); err != nil {
		t.Fatalf("settings.Validate: %v", err)
	}
	return settings
}
