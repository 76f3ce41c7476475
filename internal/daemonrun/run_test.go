package daemonrun

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"headphones/internal/logging"
	"headphones/internal/testsupport"
)

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestNewLoggerWritesDatedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithOption("LOG_FILE", true))
	settings := testsupport.Settings(t, cfg)

	logger, err := newLogger(settings, Options{LogLevel: "debug"})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("hello from the daemon", logging.String(logging.FieldComponent, "daemon"))

	path := logging.LogFilePath(filepath.Join(settings.General.DataDir, "logs"), time.Now())
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello from the daemon"`) {
		t.Fatalf("debug line missing from %s: %s", path, data)
	}
}

func TestWritePIDFile(t *testing.T) {
	if err := writePIDFile(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}
	path := filepath.Join(t.TempDir(), "headphones.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid file %q", data)
	}
}

func TestDependencySnapshotWarnsAboutRequiredEncoder(t *testing.T) {
	t.Setenv("PATH", "")
	cfg := testsupport.NewConfig(t,
		testsupport.WithOption("MUSIC_ENCODER", true),
		testsupport.WithOption("ENCODER", "lame"),
	)
	settings := testsupport.Settings(t, cfg)

	var buf bytes.Buffer
	logDependencySnapshot(slog.New(slog.NewJSONHandler(&buf, nil)), settings)
	out := buf.String()
	for _, want := range []string{`"msg":"dependency snapshot"`, `"lame_available":false`, `"event_type":"dependency_missing"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}
