package main

import (
	"bytes"
	"sort"
	"strings"
	"testing"
	"time"

	"headphones/internal/logging"
	"headphones/internal/logs"
	"headphones/internal/testsupport"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	sort.Strings(names)
	for _, want := range []string{"album", "config", "doctor", "logs", "notify", "run", "scan", "search", "snatch", "start", "status", "stop", "verify"} {
		idx := sort.SearchStrings(names, want)
		if idx >= len(names) || names[idx] != want {
			t.Fatalf("missing command %q in %v", want, names)
		}
	}
}

func TestConfigInitSkipsConfigLoad(t *testing.T) {
	root := newRootCommand()
	cmd, _, err := root.Find([]string{"config", "init"})
	if err != nil {
		t.Fatalf("find config init: %v", err)
	}
	if !shouldSkipConfig(cmd) {
		t.Fatal("config init must not load an existing config")
	}
	cmd, _, err = root.Find([]string{"snatch", "list"})
	if err != nil {
		t.Fatalf("find snatch list: %v", err)
	}
	if shouldSkipConfig(cmd) {
		t.Fatal("snatch list needs the config")
	}
}

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "headphones.db")
}

func TestStopWhenNotRunning(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestNotifyTestWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	if !strings.Contains(out, "not configured") {
		t.Fatalf("unexpected notify output %q", out)
	}
}

func TestLogsCommandFiltersDaemonLog(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithOption("LOG_FILE", true))
	settings := reopenConfig(t, env.configPath)
	content := `{"level":"info","msg":"scan finished","component":"daemon"}` + "\n" +
		`{"level":"warn","msg":"album folder skipped","component":"postprocess"}` + "\n"
	testsupport.WriteBytes(t, logging.LogFilePath(logs.Dir(settings), time.Now()), []byte(content))

	out, _, err := runCLI(t, []string{"logs", "--level", "warn"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "album folder skipped")
	if strings.Contains(out, "scan finished") {
		t.Fatalf("level filter ignored: %q", out)
	}
}

func TestLogsCommandWithoutLogFile(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "LOG_FILE") {
		t.Fatalf("expected LOG_FILE hint, got %v", err)
	}
}

func TestRunExitCodes(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"--help"}, &stderr); code != 0 {
		t.Fatalf("expected 0 for --help, got %d (%s)", code, stderr.String())
	}
	if code := run([]string{"no-such-command"}, &stderr); code != 1 {
		t.Fatalf("expected 1 for unknown command, got %d", code)
	}
	requireContains(t, stderr.String(), "headphones: ")
}
