package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"headphones/internal/api"
	"headphones/internal/config"
	"headphones/internal/deps"
	"headphones/internal/ipc"
	"headphones/internal/snatch"
)

// Runtime file names inside the data directory.
const (
	SocketName = "headphones.sock"
	PIDName    = "headphones.pid"
	LockName   = "headphones.lock"
)

const pollInterval = 200 * time.Millisecond

// ErrDaemonNotRunning is returned by Stop when no daemon answers.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Paths locates the runtime files of one daemon instance.
type Paths struct {
	Socket string
	PID    string
	Lock   string
}

// PathsFor derives the runtime files from the data directory.
func PathsFor(settings config.Settings) Paths {
	dir := settings.General.DataDir
	return Paths{
		Socket: filepath.Join(dir, SocketName),
		PID:    filepath.Join(dir, PIDName),
		Lock:   filepath.Join(dir, LockName),
	}
}

// SocketPath returns the daemon socket for the settings.
func SocketPath(settings config.Settings) string { return PathsFor(settings).Socket }

// PIDPath returns the daemon PID file for the settings.
func PIDPath(settings config.Settings) string { return PathsFor(settings).PID }

// LaunchOptions are forwarded to the detached `headphones run` process.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

func (o LaunchOptions) args() []string {
	args := []string{"run"}
	if v := strings.TrimSpace(o.ConfigPath); v != "" {
		args = append(args, "--config", v)
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		args = append(args, "--log-level", v)
	}
	return args
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult says what Start did.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// Launch starts a detached daemon process in its own session.
func Launch(executable string, opts LaunchOptions) error {
	if strings.TrimSpace(executable) == "" {
		return errors.New("resolve executable: executable path is empty")
	}
	proc := exec.Command(executable, opts.args()...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// Start makes sure a daemon is serving on paths.Socket, launching executable
// when nothing answers, then asks it to start its background loops.
func Start(ctx context.Context, paths Paths, executable string, opts LaunchOptions, timeout time.Duration) (StartResult, error) {
	result := StartResult{}
	client, err := ipc.Dial(paths.Socket)
	if err != nil {
		if err := Launch(executable, opts); err != nil {
			return result, err
		}
		result.Launched = true
		if err := waitFor(ctx, timeout, func() (bool, error) {
			client, err = ipc.Dial(paths.Socket)
			return err == nil, err
		}); err != nil {
			return result, fmt.Errorf("daemon failed to start: %w", err)
		}
	}
	defer client.Close()

	if status, err := client.Status(); err == nil && status.Running {
		result.State = StartStateAlreadyRunning
		if result.Launched {
			result.State = StartStateStarted
		}
		return result, nil
	}

	resp, err := client.Start()
	if err != nil {
		return result, err
	}
	result.Message = strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		result.State = StartStateStarted
	case strings.EqualFold(result.Message, "daemon already running"):
		result.State = StartStateAlreadyRunning
	default:
		result.State = StartStateRequested
		if result.Message == "" {
			result.Message = "Start request sent"
		}
	}
	return result, nil
}

// Running reports whether a daemon answers on socket and, when it says so,
// its PID.
func Running(socket string) (bool, int, error) {
	client, err := ipc.Dial(socket)
	if err != nil {
		if offline(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	return true, status.PID, nil
}

// WaitForShutdown waits until nothing answers on socket or the daemon reports
// it is no longer running.
func WaitForShutdown(ctx context.Context, socket string, timeout time.Duration) error {
	err := waitFor(ctx, timeout, func() (bool, error) {
		client, err := ipc.Dial(socket)
		if err != nil {
			return offline(err), err
		}
		defer client.Close()
		status, err := client.Status()
		if err != nil {
			return false, err
		}
		if status.Running {
			return false, errors.New("daemon still running")
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("daemon did not stop: %w", err)
	}
	return nil
}

// StopResult says how the daemon went away.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// Stop asks the daemon to exit, sends SIGTERM and kills it when it is still
// answering after grace.
func Stop(ctx context.Context, paths Paths, grace time.Duration) (StopResult, error) {
	client, err := ipc.Dial(paths.Socket)
	if err != nil {
		if offline(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	var result StopResult
	if status, err := client.Status(); err == nil {
		result.PID = status.PID
	}
	resp, err := client.Stop()
	client.Close()
	if err != nil {
		return result, err
	}
	result.StopAcknowledged = resp.Stopped

	if result.PID > 0 && result.PID != os.Getpid() {
		if proc, err := os.FindProcess(result.PID); err == nil {
			_ = proc.Signal(syscall.SIGTERM)
		}
	}
	if WaitForShutdown(ctx, paths.Socket, grace) == nil {
		return result, nil
	}
	alive, pid, err := Running(paths.Socket)
	if err != nil || !alive {
		return result, nil
	}
	killed, err := Kill(paths, max(pid, result.PID))
	if err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	_ = os.Remove(paths.Socket)
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

// Kill sends SIGKILL to the PID recorded in paths.PID, or fallback when the
// file is absent, and removes the PID and lock files.
func Kill(paths Paths, fallback int) (int, error) {
	pid, err := readPID(paths.PID)
	if err != nil {
		return 0, err
	}
	if pid == 0 {
		pid = fallback
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", paths.PID)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(paths.PID); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", paths.PID, err)
	}
	if paths.Lock != "" {
		_ = os.Remove(paths.Lock)
	}
	return pid, nil
}

// readPID returns 0 when the file is missing or does not hold a PID.
func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid < 0 {
		return 0, nil
	}
	return pid, nil
}

// Snapshot returns the daemon's status, or one built from the snatch
// database and a local dependency check when the daemon is offline.
func Snapshot(ctx context.Context, settings config.Settings) (*ipc.StatusResponse, error) {
	paths := PathsFor(settings)
	if client, err := ipc.Dial(paths.Socket); err == nil {
		defer client.Close()
		if resp, err := client.Status(); err == nil {
			return resp, nil
		}
	}

	status := &ipc.StatusResponse{
		DatabasePath: filepath.Join(settings.General.DataDir, snatch.DatabaseName),
		LockFilePath: paths.Lock,
		Dependencies: Dependencies(settings),
	}
	store, err := snatch.Open(settings)
	if err != nil {
		return status, nil
	}
	defer store.Close()
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if stats, err := store.Stats(queryCtx); err == nil {
		status.Snatches = api.MergeSnatchStats(stats)
	}
	return status, nil
}

// Dependencies resolves the external binaries for status output.
func Dependencies(settings config.Settings) []ipc.DependencyStatus {
	return api.FromDependencies(deps.Check(settings))
}

// waitFor polls cond until it reports done, ctx ends or timeout passes. The
// last error from cond is returned on timeout.
func waitFor(ctx context.Context, timeout time.Duration, cond func() (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	var last error
	for {
		done, err := cond()
		if done {
			return nil
		}
		if err != nil {
			last = err
		}
		select {
		case <-ctx.Done():
			if last == nil {
				last = ctx.Err()
			}
			return last
		case <-ticker.C:
		}
	}
}

func offline(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
