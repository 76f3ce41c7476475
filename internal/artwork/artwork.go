package artwork

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // decoder registration
	"image/jpeg"
	_ "image/png" // decoder registration
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"

	"headphones/internal/logging"
	"headphones/internal/services"
	"headphones/internal/snatch"
)

const (
	// MinBytes is the smallest payload accepted as real artwork.
	MinBytes = 100
	// MaxDimension bounds the width and height of stored art.
	MaxDimension = 1000

	maxDownload = 20 << 20
	userAgent   = "Headphones-Go/0.1.0"
)

// ErrNoArt reports that no usable artwork was found.
var ErrNoArt = errors.New("no album art")

// localNames are cover files a download may already carry.
var localNames = []string{"folder.jpg", "cover.jpg", "front.jpg", "folder.png", "cover.png", "front.png"}

// Fetcher resolves album art from the network, the art cache or the album
// folder, in that order.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	logger   *slog.Logger
}

// NewFetcher builds a fetcher that caches art below dataDir. An empty
// dataDir disables the cache.
func NewFetcher(dataDir string, logger *slog.Logger) *Fetcher {
	cacheDir := ""
	if strings.TrimSpace(dataDir) != "" {
		cacheDir = filepath.Join(dataDir, "cache", "artwork")
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		cacheDir: cacheDir,
		logger:   logging.NewComponentLogger(logger, "artwork"),
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func (f *Fetcher) WithHTTPClient(client *http.Client) {
	if f != nil && client != nil {
		f.client = client
	}
}

// Fetch returns JPEG art for the album. folder is searched for an existing
// cover when the remote and the cache both fail; it may be empty.
func (f *Fetcher) Fetch(ctx context.Context, album snatch.Album, folder string) ([]byte, error) {
	logger := f.logger.With(logging.String("album", album.Title))

	if url := strings.TrimSpace(album.ArtworkURL); url != "" {
		data, err := f.download(ctx, url)
		if err == nil {
			art, err := Normalize(data)
			if err == nil {
				f.store(album.ID, art)
				return art, nil
			}
			logger.Debug("remote art unusable", logging.Error(err))
		} else {
			logger.Debug("remote art download failed", logging.String("url", url), logging.Error(err))
		}
	}

	if data, ok := f.cached(album.ID); ok {
		logger.Debug("using cached art")
		return data, nil
	}

	if folder != "" {
		for _, name := range localNames {
			data, err := os.ReadFile(filepath.Join(folder, name))
			if err != nil || len(data) < MinBytes {
				continue
			}
			art, err := Normalize(data)
			if err != nil {
				continue
			}
			logger.Debug("using art from download folder", logging.String("file", name))
			return art, nil
		}
	}
	return nil, ErrNoArt
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "artwork", "build request", "Invalid artwork URL", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "artwork", "download", "Artwork request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "artwork", "download", fmt.Sprintf("Artwork host returned status %d", resp.StatusCode), nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "artwork", "download", "Artwork body unreadable", err)
	}
	if len(data) < MinBytes {
		return nil, ErrNoArt
	}
	return data, nil
}

func (f *Fetcher) cachePath(albumID string) string {
	if f.cacheDir == "" || strings.TrimSpace(albumID) == "" {
		return ""
	}
	return filepath.Join(f.cacheDir, albumID+".jpg")
}

func (f *Fetcher) cached(albumID string) ([]byte, bool) {
	path := f.cachePath(albumID)
	if path == "" {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) < MinBytes {
		return nil, false
	}
	return data, true
}

func (f *Fetcher) store(albumID string, art []byte) {
	path := f.cachePath(albumID)
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		f.logger.Debug("art cache unavailable", logging.Error(err))
		return
	}
	if err := os.WriteFile(path, art, 0o644); err != nil {
		f.logger.Debug("art cache write failed", logging.Error(err))
	}
}

// Normalize decodes JPEG, PNG or GIF data and re-encodes it as JPEG,
// scaled down to fit MaxDimension while keeping the aspect ratio.
func Normalize(data []byte) ([]byte, error) {
	if len(data) < MinBytes {
		return nil, ErrNoArt
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode artwork: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, ErrNoArt
	}
	if width > MaxDimension || height > MaxDimension {
		if width >= height {
			height = max(1, height*MaxDimension/width)
			width = MaxDimension
		} else {
			width = max(1, width*MaxDimension/height)
			height = MaxDimension
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode artwork: %w", err)
	}
	return buf.Bytes(), nil
}
