package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"headphones/internal/logging"
	"headphones/internal/services"
)

const (
	losslessCategory = "3040"
	maxPayloadBytes  = 10 << 20
)

// Query describes one album search.
type Query struct {
	Artist   string
	Album    string
	Year     string
	Lossless bool
}

// Term is the free text sent to indexers.
func (q Query) Term() string {
	return strings.TrimSpace(q.Artist + " " + q.Album)
}

// Provider searches one indexer and downloads its payloads.
type Provider interface {
	Name() string
	Kind() Kind
	Search(ctx context.Context, q Query) ([]Result, error)
	Fetch(ctx context.Context, r Result) ([]byte, error)
}

// Indexer is a Torznab or Newznab endpoint.
type Indexer struct {
	name       string
	kind       Kind
	baseURL    string
	apiKey     string
	categories string
	client     *http.Client
	logger     *slog.Logger
}

// IndexerConfig configures an Indexer.
type IndexerConfig struct {
	Name       string
	Kind       Kind
	BaseURL    string
	APIKey     string
	Categories string
	Timeout    time.Duration
	Client     *http.Client
}

// NewIndexer returns a Torznab (torrent) or Newznab (nzb) client.
func NewIndexer(cfg IndexerConfig, logger *slog.Logger) *Indexer {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	name := cfg.Name
	if name == "" {
		name = string(cfg.Kind)
	}
	return &Indexer{
		name:       name,
		kind:       cfg.Kind,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		categories: cfg.Categories,
		client:     client,
		logger:     logging.NewComponentLogger(logger, "indexer").With(logging.String("provider", name)),
	}
}

func (i *Indexer) Name() string { return i.name }
func (i *Indexer) Kind() Kind   { return i.kind }

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string `xml:"title"`
	Link      string `xml:"link"`
	GUID      string `xml:"guid"`
	Size      string `xml:"size"`
	Enclosure struct {
		URL    string `xml:"url,attr"`
		Length string `xml:"length,attr"`
	} `xml:"enclosure"`
	Attrs []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value,attr"`
	} `xml:"attr"`
}

func (it rssItem) attr(name string) string {
	for _, a := range it.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value
		}
	}
	return ""
}

// Search runs a music query. Items without a title or link are dropped.
func (i *Indexer) Search(ctx context.Context, q Query) ([]Result, error) {
	endpoint, err := url.Parse(i.baseURL + "/api")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "indexer", "parse url", "Invalid indexer host", err)
	}
	categories := i.categories
	if q.Lossless {
		categories = losslessCategory
	}
	values := url.Values{}
	values.Set("t", "music")
	values.Set("q", q.Term())
	values.Set("apikey", i.apiKey)
	if categories != "" {
		values.Set("cat", categories)
	}
	endpoint.RawQuery = values.Encode()

	body, err := i.get(ctx, endpoint.String())
	if err != nil {
		return nil, err
	}
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "indexer", "decode feed", "Indexer returned malformed XML", err)
	}

	results := make([]Result, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		link := it.Enclosure.URL
		if link == "" {
			link = it.Link
		}
		if strings.TrimSpace(it.Title) == "" || link == "" {
			continue
		}
		size := ParseSize(it.attr("size"))
		if size == 0 {
			size = ParseSize(it.Size)
		}
		if size == 0 {
			size = ParseSize(it.Enclosure.Length)
		}
		r := Result{
			Title:    strings.TrimSpace(it.Title),
			URL:      link,
			Size:     size,
			Seeders:  ParseSeeders(it.attr("seeders")),
			Kind:     i.kind,
			Provider: i.name,
		}
		r.Fetch = func(ctx context.Context) ([]byte, error) { return i.Fetch(ctx, r) }
		results = append(results, r)
	}
	i.logger.Debug("indexer search complete", logging.String("term", q.Term()), logging.Int("results", len(results)))
	return results, nil
}

// Fetch downloads the payload behind a result's link.
func (i *Indexer) Fetch(ctx context.Context, r Result) ([]byte, error) {
	if isMagnet(r.URL) {
		return nil, services.Wrap(services.ErrValidation, "indexer", "fetch", "Magnet links carry no payload", nil)
	}
	return i.get(ctx, r.URL)
}

func (i *Indexer) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "indexer", "build request", "Invalid indexer request", err)
	}
	req.Header.Set("User-Agent", "headphones")
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "indexer", "request", "Indexer unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "indexer", "request",
			fmt.Sprintf("Indexer returned HTTP %d", resp.StatusCode), nil)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "indexer", "read body", "Indexer response interrupted", err)
	}
	return body, nil
}
