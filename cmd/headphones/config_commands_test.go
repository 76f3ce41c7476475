package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigSetPersistsAndValidates(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "set", "search_interval", "60"}, env.configPath)
	if err != nil {
		t.Fatalf("config set: %v", err)
	}
	requireContains(t, out, "SEARCH_INTERVAL = 60")
	if got := reopenConfig(t, env.configPath).General.SearchInterval; got != 60 {
		t.Fatalf("expected saved search interval 60, got %d", got)
	}

	if _, _, err := runCLI(t, []string{"config", "set", "SEARCH_INTERVAL", "soon"}, env.configPath); err == nil {
		t.Fatal("expected non-numeric value to be rejected")
	}
	if _, _, err := runCLI(t, []string{"config", "set", "NO_SUCH_OPTION", "1"}, env.configPath); err == nil {
		t.Fatal("expected unknown option to be rejected")
	}
	if _, _, err := runCLI(t, []string{"config", "set", "SCAN_INTERVAL", "0"}, env.configPath); err == nil {
		t.Fatal("expected invalid scan interval to be rejected")
	}
	if got := reopenConfig(t, env.configPath).General.ScanInterval; got < 1 {
		t.Fatalf("invalid scan interval was saved: %d", got)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"config", "set", "API_KEY", "hunter2"}, env.configPath); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, _, err := runCLI(t, []string{"config", "show", "--section", "general"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "API_KEY")
	requireContains(t, out, "SEARCH_INTERVAL")
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked in output: %q", out)
	}
	requireContains(t, out, "********")
	if strings.Contains(out, "FOLDER_FORMAT") {
		t.Fatalf("section filter ignored: %q", out)
	}

	if _, _, err := runCLI(t, []string{"config", "show", "--section", "nope"}, env.configPath); err == nil {
		t.Fatal("expected unknown section to fail")
	}
}

func TestConfigFormAppliesSubmission(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "form", "hp_ui_search_interval=90"}, env.configPath)
	if err != nil {
		t.Fatalf("config form: %v", err)
	}
	requireContains(t, out, "1 option(s) changed")
	if got := reopenConfig(t, env.configPath).General.SearchInterval; got != 90 {
		t.Fatalf("expected search interval 90, got %d", got)
	}

	body := strings.NewReader("hp_ui_scan_interval=15&hp_ui_search_interval=90\n")
	out, _, err = runCLIWithInput(t, []string{"config", "form", "--file", "-"}, env.configPath, body)
	if err != nil {
		t.Fatalf("config form --file: %v", err)
	}
	requireContains(t, out, "1 option(s) changed")
	if got := reopenConfig(t, env.configPath).General.ScanInterval; got != 15 {
		t.Fatalf("expected scan interval 15, got %d", got)
	}

	if _, _, err := runCLI(t, []string{"config", "form", "no-equals-sign"}, env.configPath); err == nil {
		t.Fatal("expected malformed pair to fail")
	}
}

func TestReadFormMergesFileAndArgs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.txt")
	if err := os.WriteFile(path, []byte("a=1&b=2"), 0o644); err != nil {
		t.Fatalf("write form: %v", err)
	}
	form, err := readForm(nil, path, []string{"b=3", "c="})
	if err != nil {
		t.Fatalf("readForm: %v", err)
	}
	if got := form["b"]; len(got) != 2 || got[0] != "2" || got[1] != "3" {
		t.Fatalf("unexpected b values %v", got)
	}
	if got, ok := form["c"]; !ok || len(got) != 1 || got[0] != "" {
		t.Fatalf("expected empty c value, got %v", got)
	}
}
