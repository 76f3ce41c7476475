package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"headphones/internal/api"
	"headphones/internal/config"
	"headphones/internal/deps"
	"headphones/internal/logging"
	"headphones/internal/notifications"
	"headphones/internal/postprocess"
	"headphones/internal/search"
	"headphones/internal/services"
	"headphones/internal/snatch"
)

// FolderScanner verifies the download folders of pending snatches.
type FolderScanner interface {
	CheckFolders(ctx context.Context) ([]postprocess.Result, error)
}

// WantedSearcher searches every wanted album.
type WantedSearcher interface {
	SearchWanted(ctx context.Context) (int, error)
}

// Workers are the jobs the daemon schedules. They are rebuilt whenever the
// settings change.
type Workers struct {
	Scanner  FolderScanner
	Searcher WantedSearcher
}

// WorkerFactory builds workers for a settings snapshot.
type WorkerFactory func(settings config.Settings, store *snatch.Store, logger *slog.Logger) Workers

// DefaultWorkers wires the post-processor and the searcher with a shared
// notifier.
func DefaultWorkers(settings config.Settings, store *snatch.Store, logger *slog.Logger) Workers {
	notifier := notifications.NewService(settings.Notify)
	return Workers{
		Scanner: postprocess.NewProcessorWithDependencies(settings, store, logger, postprocess.Dependencies{Notifier: notifier}),
		Searcher: search.NewSearcher(settings, store,
			search.ProvidersFromSettings(settings, logger), notifier, logger),
	}
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithWorkerFactory replaces DefaultWorkers (used in tests).
func WithWorkerFactory(factory WorkerFactory) Option {
	return func(d *Daemon) { d.factory = factory }
}

// WithIntervals overrides the scan and search periods taken from the
// settings. Zero keeps the configured value.
func WithIntervals(scan, search time.Duration) Option {
	return func(d *Daemon) {
		d.scanEvery = scan
		d.searchEvery = search
	}
}

// WithSettleDelay sets how long the download watcher waits after the last
// filesystem event before scanning.
func WithSettleDelay(delay time.Duration) Option {
	return func(d *Daemon) { d.settle = delay }
}

// Daemon schedules download scans and searches and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	store   *snatch.Store
	logger  *slog.Logger
	factory WorkerFactory

	settingsMu sync.RWMutex
	settings   config.Settings
	workers    Workers

	scanEvery   time.Duration
	searchEvery time.Duration
	settle      time.Duration

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	scanNow   chan struct{}
	searchNow chan struct{}

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	stateMu    sync.Mutex
	lastScan   time.Time
	lastSearch time.Time
	lastError  string
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	LastScan     time.Time
	LastSearch   time.Time
	LastError    string
	Snatches     map[snatch.Status]int
	Dependencies []deps.Status
}

// DTO renders the status for the HTTP and IPC surfaces.
func (st Status) DTO() api.DaemonStatus {
	return api.DaemonStatus{
		Running:      st.Running,
		PID:          st.PID,
		DatabasePath: st.DatabasePath,
		LockFilePath: st.LockFilePath,
		LastScan:     api.FormatTime(st.LastScan),
		LastSearch:   api.FormatTime(st.LastSearch),
		LastError:    st.LastError,
		Snatches:     api.MergeSnatchStats(st.Snatches),
		Dependencies: api.FromDependencies(st.Dependencies),
	}
}

// New constructs a daemon for the settings currently held by cfg.
func New(cfg *config.Config, store *snatch.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	settings, err := cfg.Settings()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(settings.General.DataDir, "headphones.lock")
	d := &Daemon{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		factory:   DefaultWorkers,
		settle:    30 * time.Second,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		scanNow:   make(chan struct{}, 1),
		searchNow: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.apply(settings, logger)
	d.api = newAPIServer(settings.General, d, logger)
	return d, nil
}

func (d *Daemon) apply(settings config.Settings, logger *slog.Logger) {
	workers := d.factory(settings, d.store, logger)
	d.settingsMu.Lock()
	d.settings = settings
	d.workers = workers
	d.settingsMu.Unlock()
}

func (d *Daemon) current() (config.Settings, Workers) {
	d.settingsMu.RLock()
	defer d.settingsMu.RUnlock()
	return d.settings, d.workers
}

// Start acquires the instance lock and launches the scan, search and watcher
// loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	settings, _ := d.current()
	if err := settings.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another headphones daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(2)
	go d.scanLoop(runCtx)
	go d.searchLoop(runCtx)
	if watcher := d.newDownloadWatcher(); watcher != nil {
		d.wg.Add(1)
		go d.watchDownloads(runCtx, watcher)
	}
	if d.cfg.Exists {
		d.wg.Add(1)
		go d.watchConfig(runCtx)
	}

	d.logger.Info("headphones daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("scan_interval", d.scanInterval()),
		logging.Duration("search_interval", d.searchInterval()),
	)
	return nil
}

// Stop cancels the loops, waits for them and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("headphones daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// TriggerScan asks the scan loop to run now. It reports false when a scan
// request is already pending.
func (d *Daemon) TriggerScan() bool {
	return trigger(d.scanNow)
}

// TriggerSearch asks the search loop to run now.
func (d *Daemon) TriggerSearch() bool {
	return trigger(d.searchNow)
}

func trigger(ch chan struct{}) bool {
	select {
	case ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	settings, _ := d.current()
	d.stateMu.Lock()
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		LastScan:     d.lastScan,
		LastSearch:   d.lastSearch,
		LastError:    d.lastError,
	}
	d.stateMu.Unlock()

	if stats, err := d.store.Stats(ctx); err == nil {
		status.Snatches = stats
	}
	status.Dependencies = deps.Check(settings)
	return status
}

func (d *Daemon) scanInterval() time.Duration {
	if d.scanEvery > 0 {
		return d.scanEvery
	}
	settings, _ := d.current()
	return time.Duration(settings.General.ScanInterval) * time.Minute
}

func (d *Daemon) searchInterval() time.Duration {
	if d.searchEvery > 0 {
		return d.searchEvery
	}
	settings, _ := d.current()
	return time.Duration(settings.General.SearchInterval) * time.Minute
}

func (d *Daemon) scanLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.scanInterval())
	defer ticker.Stop()

	d.runScan(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.scanNow:
		}
		d.runScan(ctx)
		ticker.Reset(d.scanInterval())
	}
}

func (d *Daemon) runScan(ctx context.Context) {
	results, err := d.ScanNow(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.ErrorWithContext(d.logger, "download scan failed", "scan_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "snatched albums wait for the next scan"),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
			)
		}
		return
	}
	if len(results) > 0 {
		d.logger.Info("download scan finished", logging.Int("folders", len(results)))
	}
}

// ScanNow verifies pending download folders synchronously.
func (d *Daemon) ScanNow(ctx context.Context) ([]postprocess.Result, error) {
	_, workers := d.current()
	if workers.Scanner == nil {
		return nil, nil
	}
	results, err := workers.Scanner.CheckFolders(ctx)
	d.record(&d.lastScan, err)
	return results, err
}

func (d *Daemon) searchLoop(ctx context.Context) {
	defer d.wg.Done()
	var tick <-chan time.Time
	if every := d.searchInterval(); every > 0 {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-d.searchNow:
		}
		_, workers := d.current()
		if workers.Searcher == nil {
			continue
		}
		count, err := workers.Searcher.SearchWanted(ctx)
		d.record(&d.lastSearch, err)
		if err != nil && ctx.Err() == nil {
			logging.ErrorWithContext(d.logger, "wanted search failed", "search_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "wanted albums wait for the next search"),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
			)
			continue
		}
		if count > 0 {
			d.TriggerScan()
		}
	}
}

func (d *Daemon) record(at *time.Time, err error) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	*at = time.Now()
	if err != nil {
		d.lastError = err.Error()
	}
}

func (d *Daemon) watchConfig(ctx context.Context) {
	defer d.wg.Done()
	if err := d.cfg.Watch(ctx, d.reload); err != nil {
		logging.WarnWithContext(d.logger, "config watcher unavailable", "config_watch_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "config edits need a restart"),
		)
	}
}

// reload re-reads the config file and rebuilds the workers. Invalid edits
// keep the previous settings and store values.
func (d *Daemon) reload() {
	settings, err := d.cfg.Reload()
	if err != nil {
		logging.WarnWithContext(d.logger, "config reload rejected", "config_invalid",
			logging.Error(err),
			logging.String(logging.FieldImpact, "previous settings stay active"),
		)
		return
	}
	d.apply(settings, d.logger)
	d.logger.Info("config reloaded")
}
