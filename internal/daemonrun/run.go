package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"headphones/internal/config"
	"headphones/internal/daemon"
	"headphones/internal/daemonctl"
	"headphones/internal/deps"
	"headphones/internal/ipc"
	"headphones/internal/logging"
	"headphones/internal/snatch"
)

// logRetentionDays bounds how long dated daemon logs are kept.
const logRetentionDays = 30

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the headphones daemon and blocks until the context is canceled
// or the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := settings.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := newLogger(settings, opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logDependencySnapshot(logger, settings)

	pidPath := daemonctl.PIDPath(settings)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := snatch.Open(settings)
	if err != nil {
		logger.Error("open snatch store", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, daemonctl.SocketPath(settings), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and database access"),
			logging.String(logging.FieldImpact, "downloads are not verified until the daemon is started"),
		)
	}

	<-signalCtx.Done()
	logger.Info("headphones daemon shutting down")
	return nil
}

func newLogger(settings config.Settings, opts Options) (*slog.Logger, error) {
	level := opts.LogLevel
	if level == "" {
		level = settings.General.LogLevel
	}
	loggerOpts := logging.Options{
		Level:       level,
		Format:      settings.General.LogFormat,
		Development: opts.Development,
	}
	if settings.General.LogFile {
		loggerOpts.LogDir = filepath.Join(settings.General.DataDir, "logs")
		loggerOpts.RetentionDays = logRetentionDays
	}
	return logging.New(loggerOpts)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, settings config.Settings) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("torznab_enabled", settings.Torrent.Enabled),
		logging.Bool("newznab_enabled", settings.Usenet.Enabled),
		logging.Bool("notifications_enabled", settings.Notify.NtfyTopic != ""),
	}
	statuses := deps.Check(settings)
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	for _, status := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required binary unavailable", "dependency_missing",
			logging.String("binary", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "install it or set ENCODER_PATH"),
			logging.String(logging.FieldImpact, "post-processing skips encoding"),
		)
	}
}
