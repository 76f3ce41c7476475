package viewmodel_test

import (
	"errors"
	"reflect"
	"testing"

	"headphones/internal/config"
	"headphones/internal/testsupport"
	"headphones/internal/viewmodel"
)

type countingEntry struct {
	config.Entry
	sets int
}

func (c *countingEntry) SetValue(value any) error {
	c.sets++
	return c.Entry.SetValue(value)
}

func TestUIKey(t *testing.T) {
	if got := viewmodel.UIKey("PREFERRED_BITRATE"); got != "hp_ui_preferred_bitrate" {
		t.Fatalf("unexpected ui key %q", got)
	}
}

func TestRegisterRejectsDuplicateKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	parser := viewmodel.NewParser(nil)

	if err := parser.Register(viewmodel.NewString(cfg.Options.IgnoredWords, viewmodel.Presentation{})); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := parser.Register(viewmodel.NewString(cfg.Options.IgnoredWords, viewmodel.Presentation{}))
	if !errors.Is(err, viewmodel.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestRegisterRejectsDuplicateChildKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	parser := viewmodel.NewParser(nil)

	sw := viewmodel.NewSwitch(cfg.Options.TorznabEnabled, viewmodel.Presentation{},
		viewmodel.NewString(cfg.Options.TorznabHost, viewmodel.Presentation{}),
		viewmodel.NewString(cfg.Options.TorznabHost, viewmodel.Presentation{}),
	)
	if err := parser.Register(sw); !errors.Is(err, viewmodel.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey from children, got %v", err)
	}
	if keys := parser.Keys(); len(keys) != 0 {
		t.Fatalf("failed register left keys behind: %v", keys)
	}

	fixed := viewmodel.NewSwitch(cfg.Options.TorznabEnabled, viewmodel.Presentation{},
		viewmodel.NewString(cfg.Options.TorznabHost, viewmodel.Presentation{}),
	)
	if err := parser.Register(fixed); err != nil {
		t.Fatalf("Register after failed attempt: %v", err)
	}
	if _, ok := parser.Field(viewmodel.UIKey("TORZNAB")); !ok {
		t.Fatalf("parent key missing after successful register")
	}
}

func TestRegisterRejectsNonField(t *testing.T) {
	parser := viewmodel.NewParser(nil)
	if err := parser.Register(&viewmodel.Message{Text: "hello"}); !errors.Is(err, viewmodel.ErrNotAnOption) {
		t.Fatalf("expected ErrNotAnOption, got %v", err)
	}
}

func TestAcceptSetsRangeOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	entry := &countingEntry{Entry: cfg.Options.BitrateBuffer}
	parser := viewmodel.NewParser(nil)
	if err := parser.Register(viewmodel.NewRange(entry, viewmodel.Presentation{})); err != nil {
		t.Fatalf("Register: %v", err)
	}

	changed, err := parser.Accept(map[string][]string{
		"hp_ui_preferred_bitrate_buffer_min": {"10"},
		"hp_ui_preferred_bitrate_buffer_max": {"30"},
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if changed != 1 || entry.sets != 1 {
		t.Fatalf("expected one change and one set, got changed=%d sets=%d", changed, entry.sets)
	}
	got, err := cfg.Options.BitrateBuffer.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, []int{10, 30}) {
		t.Fatalf("unexpected range %v", got)
	}
}

func TestAcceptRangeKeepsMissingBound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	parser := viewmodel.NewParser(nil)
	if err := parser.Register(viewmodel.NewRange(cfg.Options.BitrateBuffer, viewmodel.Presentation{})); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := parser.Accept(map[string][]string{"hp_ui_preferred_bitrate_buffer_max": {"50"}}); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	got, _ := cfg.Options.BitrateBuffer.Get()
	if !reflect.DeepEqual(got, []int{20, 50}) {
		t.Fatalf("expected [20 50], got %v", got)
	}
}

func TestAcceptSkipsUnknownAndReadOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	parser, _, err := viewmodel.NewFormParser(cfg.Options, nil)
	if err != nil {
		t.Fatalf("NewFormParser: %v", err)
	}

	changed, err := parser.Accept(map[string][]string{
		"hp_ui_config_version": {"42"},
		"hp_ui_not_an_option":  {"x"},
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if changed != 0 {
		t.Fatalf("expected no changes, got %d", changed)
	}
	version, _ := cfg.Options.ConfigVersion.Get()
	if version != 1 {
		t.Fatalf("read-only option changed to %d", version)
	}
}

func TestAcceptCountsOnlyDifferences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	parser, _, err := viewmodel.NewFormParser(cfg.Options, nil)
	if err != nil {
		t.Fatalf("NewFormParser: %v", err)
	}

	form := map[string][]string{
		"hp_ui_preferred_quality": {"2"},
		"hp_ui_numberofseeders":   {"10"},
		"hp_ui_ignored_words":     {"karaoke, tribute"},
		"hp_ui_torznab_apikey":    {"secret"},
	}
	changed, err := parser.Accept(form)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if changed != 3 {
		t.Fatalf("expected 3 changes (seeders unchanged), got %d", changed)
	}
	quality, _ := cfg.Options.PreferredQuality.Get()
	if quality != config.QualityPreferredBitrate {
		t.Fatalf("expected quality 2, got %d", quality)
	}

	again, err := parser.Accept(form)
	if err != nil {
		t.Fatalf("Accept again: %v", err)
	}
	if again != 0 {
		t.Fatalf("resubmitting the same form changed %d options", again)
	}
}

func TestAcceptRejectsBadBool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	parser, _, err := viewmodel.NewFormParser(cfg.Options, nil)
	if err != nil {
		t.Fatalf("NewFormParser: %v", err)
	}

	changed, err := parser.Accept(map[string][]string{
		"hp_ui_move_files":        {"yes"},
		"hp_ui_rename_files":      {"1"},
		"hp_ui_cleanup_files":     {"on"},
		"hp_ui_preferred_bitrate": {"abc"},
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if changed != 2 {
		t.Fatalf("expected 2 changes, got %d", changed)
	}
	move, _ := cfg.Options.MoveFiles.Get()
	if move {
		t.Fatal("invalid bool should leave MOVE_FILES unchanged")
	}
}

func TestAcceptCheckboxList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	parser, _, err := viewmodel.NewFormParser(cfg.Options, nil)
	if err != nil {
		t.Fatalf("NewFormParser: %v", err)
	}

	changed, err := parser.Accept(map[string][]string{
		"hp_ui_extras_live":   {"1"},
		"hp_ui_extras_single": {"1"},
		"hp_ui_extras_remix":  {"0"},
	})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected one change, got %d", changed)
	}
	extras, _ := cfg.Options.Extras.Get()
	if !reflect.DeepEqual(extras, []string{"single", "live"}) {
		t.Fatalf("unexpected extras %v", extras)
	}
}

func TestDropdownRejectsUnknownChoice(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	parser, _, err := viewmodel.NewFormParser(cfg.Options, nil)
	if err != nil {
		t.Fatalf("NewFormParser: %v", err)
	}
	changed, err := parser.Accept(map[string][]string{"hp_ui_encoder": {"flac"}})
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if changed != 0 {
		t.Fatalf("unknown choice should not change the option")
	}
}

func TestDefinitionsCoverCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	parser, tabs, err := viewmodel.NewFormParser(cfg.Options, nil)
	if err != nil {
		t.Fatalf("NewFormParser: %v", err)
	}

	owned := map[string]bool{}
	for _, key := range parser.Keys() {
		field, _ := parser.Field(key)
		owned[field.Entry().AppKey()] = true
	}
	for _, entry := range cfg.Registry.Entries() {
		if !owned[entry.AppKey()] {
			t.Fatalf("option %s has no form field", entry.AppKey())
		}
	}

	nodes := make([]viewmodel.Node, 0, len(tabs))
	for _, tab := range tabs {
		nodes = append(nodes, tab)
	}
	messages := 0
	viewmodel.Walk(nodes, func(_ int, n viewmodel.Node) bool {
		if n.Kind() == "message" {
			messages++
		}
		return true
	})
	if messages == 0 {
		t.Fatal("expected Walk to reach message nodes")
	}
}
