package daemon

import (
	"log/slog"
	"os"
	"testing"

	"headphones/internal/config"
	"headphones/internal/snatch"
	"headphones/internal/testsupport"
)

func TestReloadRebuildsWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var seen []int
	factory := func(settings config.Settings, _ *snatch.Store, _ *slog.Logger) Workers {
		seen = append(seen, settings.General.SearchInterval)
		return Workers{}
	}
	d, err := New(cfg, store, nil, WithWorkerFactory(factory))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	entry, ok := cfg.Registry.Lookup("SEARCH_INTERVAL")
	if !ok {
		t.Fatal("SEARCH_INTERVAL not registered")
	}
	if err := entry.SetValue(60); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	d.reload()
	if len(seen) != 2 || seen[1] != 60 {
		t.Fatalf("expected workers rebuilt with interval 60, got %v", seen)
	}
	settings, _ := d.current()
	if settings.General.SearchInterval != 60 {
		t.Fatalf("expected active interval 60, got %d", settings.General.SearchInterval)
	}
}

func TestReloadKeepsSettingsWhenInvalid(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	builds := 0
	factory := func(config.Settings, *snatch.Store, *slog.Logger) Workers {
		builds++
		return Workers{}
	}
	d, err := New(cfg, store, nil, WithWorkerFactory(factory))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := os.WriteFile(cfg.Path, []byte("[General\nbroken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	d.reload()
	if builds != 1 {
		t.Fatalf("expected no rebuild for a broken file, got %d builds", builds)
	}
}

func TestReloadLeavesStoreUntouchedWhenValidationFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	builds := 0
	factory := func(config.Settings, *snatch.Store, *slog.Logger) Workers {
		builds++
		return Workers{}
	}
	d, err := New(cfg, store, nil, WithWorkerFactory(factory))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Torznab without a host parses fine but fails validation.
	if err := cfg.Options.SearchInterval.Set(60); err != nil {
		t.Fatalf("Set interval: %v", err)
	}
	if err := cfg.Options.TorznabEnabled.Set(true); err != nil {
		t.Fatalf("Set torznab: %v", err)
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := cfg.Options.SearchInterval.Set(1440); err != nil {
		t.Fatalf("Set interval: %v", err)
	}
	if err := cfg.Options.TorznabEnabled.Set(false); err != nil {
		t.Fatalf("Set torznab: %v", err)
	}

	d.reload()
	if builds != 1 {
		t.Fatalf("expected no rebuild for an invalid file, got %d builds", builds)
	}
	interval, err := cfg.Options.SearchInterval.Get()
	if err != nil {
		t.Fatalf("Get interval: %v", err)
	}
	if interval != 1440 {
		t.Fatalf("invalid reload leaked into the store: interval %d", interval)
	}
	enabled, err := cfg.Options.TorznabEnabled.Get()
	if err != nil {
		t.Fatalf("Get torznab: %v", err)
	}
	if enabled {
		t.Fatal("invalid reload leaked into the store: torznab enabled")
	}
}
