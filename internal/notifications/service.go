package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"headphones/internal/config"
)

const userAgent = "Headphones-Go/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventSnatched    Event = "snatched"
	EventProcessed   Event = "processed"
	EventUnprocessed Event = "unprocessed"
	EventError       Event = "error"
	EventTest        Event = "test"
)

// Payload carries the values a message is built from.
type Payload map[string]string

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service. Without a topic a no-op service
// is returned.
func NewService(settings config.NotifySettings) Service {
	topic := strings.TrimSpace(settings.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(settings.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventSnatched:    settings.OnSnatch,
			EventProcessed:   settings.OnProcessed,
			EventUnprocessed: settings.OnUnprocessed,
			EventError:       true,
			EventTest:        true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, p Payload) (message, bool) {
	album := albumLabel(p)
	switch event {
	case EventSnatched:
		body := fmt.Sprintf("Snatched: %s", album)
		if provider := strings.TrimSpace(p["provider"]); provider != "" {
			body = fmt.Sprintf("%s\nFrom: %s", body, provider)
		}
		return message{
			title: "Headphones - Snatched",
			body:  body,
			tags:  []string{"headphones", "snatch"},
		}, true
	case EventProcessed:
		body := fmt.Sprintf("Downloaded: %s", album)
		if location := strings.TrimSpace(p["location"]); location != "" {
			body = fmt.Sprintf("%s\nLocation: %s", body, location)
		}
		return message{
			title: "Headphones - Downloaded",
			body:  body,
			tags:  []string{"headphones", "postprocess", "completed"},
		}, true
	case EventUnprocessed:
		return message{
			title:    "Headphones - Unprocessed",
			body:     fmt.Sprintf("Could not verify: %s\nFolder: %s", album, strings.TrimSpace(p["folder"])),
			tags:     []string{"headphones", "unprocessed", "review"},
			priority: "high",
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("Error")
		if label := strings.TrimSpace(p["context"]); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		if detail := strings.TrimSpace(p["error"]); detail != "" {
			b.WriteString(": ")
			b.WriteString(detail)
		}
		return message{
			title:    "Headphones - Error",
			body:     b.String(),
			tags:     []string{"headphones", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Headphones - Test",
			body:     "Notification system test",
			tags:     []string{"headphones", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func albumLabel(p Payload) string {
	artist := strings.TrimSpace(p["artist"])
	album := strings.TrimSpace(p["album"])
	switch {
	case artist != "" && album != "":
		return artist + " - " + album
	case album != "":
		return album
	default:
		return artist
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
