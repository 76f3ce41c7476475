package daemon

import (
	"context"
	"strings"

	"headphones/internal/notifications"
	"headphones/internal/snatch"
)

// ListSnatches returns snatch records filtered by status.
func (d *Daemon) ListSnatches(ctx context.Context, statuses ...snatch.Status) ([]*snatch.Snatch, error) {
	return d.store.List(ctx, statuses...)
}

// GetSnatch fetches one snatch record, or nil when it does not exist.
func (d *Daemon) GetSnatch(ctx context.Context, id int64) (*snatch.Snatch, error) {
	return d.store.Get(ctx, id)
}

// ClearSnatches removes finished snatch records, by default every processed
// and unprocessed one. Snatched rows are kept so in-flight downloads can
// still be verified.
func (d *Daemon) ClearSnatches(ctx context.Context, statuses ...snatch.Status) (int64, error) {
	if len(statuses) == 0 {
		statuses = []snatch.Status{snatch.StatusProcessed, snatch.StatusUnprocessed}
	}
	return d.store.Clear(ctx, statuses...)
}

// TestNotification publishes a test event with the active settings.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	settings, _ := d.current()
	if strings.TrimSpace(settings.Notify.NtfyTopic) == "" {
		return false, "notifications are not configured", nil
	}
	notifier := notifications.NewService(settings.Notify)
	if err := notifier.Publish(ctx, notifications.EventTest, notifications.Payload{"source": "daemon"}); err != nil {
		return false, "", err
	}
	return true, "test notification sent", nil
}
