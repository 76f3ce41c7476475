package daemon

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"headphones/internal/logging"
)

func (d *Daemon) downloadDirs() []string {
	settings, _ := d.current()
	seen := make(map[string]struct{}, 2)
	var dirs []string
	for _, dir := range []string{settings.Torrent.DownloadDir, settings.Usenet.DownloadDir} {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

// newDownloadWatcher watches the download directories. It returns nil when
// none are configured or fsnotify is unavailable.
func (d *Daemon) newDownloadWatcher() *fsnotify.Watcher {
	dirs := d.downloadDirs()
	if len(dirs) == 0 {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.WarnWithContext(d.logger, "download watcher unavailable", "download_watch_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "completed downloads are picked up by the periodic scan"),
		)
		return nil
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logging.WarnWithContext(d.logger, "cannot watch download directory", "download_watch_failed",
				logging.String("dir", dir),
				logging.Error(err),
			)
		}
	}
	return watcher
}

// watchDownloads triggers a scan once a download directory has been quiet
// for the settle delay after a new entry appeared.
func (d *Daemon) watchDownloads(ctx context.Context, watcher *fsnotify.Watcher) {
	defer d.wg.Done()
	defer watcher.Close()

	settle := time.NewTimer(d.settle)
	if !settle.Stop() {
		<-settle.C
	}
	for {
		select {
		case <-ctx.Done():
			settle.Stop()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			d.logger.Debug("download directory changed",
				logging.String("path", event.Name),
				logging.String("op", event.Op.String()),
			)
			settle.Stop()
			settle.Reset(d.settle)
		case <-settle.C:
			d.TriggerScan()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("download watcher error", logging.Error(werr))
		}
	}
}
