package encoder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"headphones/internal/config"
	"headphones/internal/deps"
	"headphones/internal/logging"
	"headphones/internal/media/ffprobe"
	"headphones/internal/services"
	"headphones/internal/tags"
)

// ErrNothingLeft reports that no media file survived encoding.
var ErrNothingLeft = errors.New("no media files after encoding")

type commandRunner func(ctx context.Context, name string, args ...string) error

// bitrateProbe reports the bitrate of a file in bits per second.
type bitrateProbe func(ctx context.Context, path string) (int64, error)

// Encoder converts album folders to the configured output format.
type Encoder struct {
	settings config.EncoderSettings
	binary   string
	logger   *slog.Logger
	run      commandRunner
	bitrate  bitrateProbe
}

// New builds an encoder from the settings. ENCODER_PATH overrides the
// binary looked up on PATH.
func New(settings config.Settings, logger *slog.Logger) *Encoder {
	binary := strings.TrimSpace(settings.Encoder.Path)
	if binary == "" {
		binary = settings.Encoder.Encoder
	}
	probe := deps.ResolveFFprobe(settings.Encoder.Path)
	return &Encoder{
		settings: settings.Encoder,
		binary:   binary,
		logger:   logging.NewComponentLogger(logger, "encoder"),
		run:      defaultCommandRunner,
		bitrate:  ffprobeBitrate(probe.Command),
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Encoder) WithCommandRunner(r func(ctx context.Context, name string, args ...string) error) {
	if e != nil && r != nil {
		e.run = r
	}
}

// WithBitrateProbe replaces the ffprobe bitrate lookup (used in tests).
func (e *Encoder) WithBitrateProbe(p func(ctx context.Context, path string) (int64, error)) {
	if e != nil && p != nil {
		e.bitrate = p
	}
}

// job encodes source into temp, which replaces target once complete. The
// temp file keeps a same-format re-encode from writing over its input.
type job struct {
	source string
	temp   string
	target string
}

// EncodeFolder encodes every eligible media file below dir and returns the
// media files present afterwards. Files that fail to encode are kept as
// they are.
func (e *Encoder) EncodeFolder(ctx context.Context, dir string) ([]string, error) {
	files, err := mediaFiles(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "encode", "scan folder", "Album folder unreadable", err)
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "encode", "collect", "No media files to encode", ErrNothingLeft)
	}

	var jobs []job
	for _, file := range files {
		if ok, reason := e.eligible(ctx, file); !ok {
			e.logger.Debug("file not re-encoded", logging.String("file", filepath.Base(file)), logging.String("reason", reason))
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		jobs = append(jobs, job{
			source: file,
			temp:   filepath.Join(filepath.Dir(file), "."+stem+".encoding."+e.format()),
			target: filepath.Join(filepath.Dir(file), stem+"."+e.format()),
		})
	}
	if len(jobs) == 0 {
		e.logger.Info("encoding not needed", logging.String("folder", dir))
		return files, nil
	}

	limit := e.settings.MaxThreads
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, j := range jobs {
		g.Go(func() error {
			e.encode(gctx, j)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final, err := mediaFiles(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "encode", "rescan folder", "Album folder unreadable", err)
	}
	if len(final) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "encode", "collect", "Encoding left no media files", ErrNothingLeft)
	}
	e.logger.Info("encoding complete",
		logging.String("folder", dir),
		logging.Int("encoded", len(jobs)),
		logging.Int("files", len(final)),
	)
	return final, nil
}

// format is the output extension. lame only writes mp3.
func (e *Encoder) format() string {
	if e.settings.Encoder == "lame" {
		return "mp3"
	}
	return e.settings.OutputFormat
}

// eligible decides whether file is re-encoded. Files already in the output
// format are only re-encoded by lossy codecs, and only when their bitrate
// exceeds BITRATE.
func (e *Encoder) eligible(ctx context.Context, file string) (bool, string) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	if e.settings.LosslessOnly && !tags.IsLossless(file) {
		return false, "lossless_only"
	}
	if e.settings.Encoder == "lame" && ext != "wav" && ext != "mp3" {
		return false, "lame_unsupported_input"
	}
	if ext != e.format() {
		return true, ""
	}
	if ext != "mp3" && ext != "m4a" {
		return false, "already_target_format"
	}
	bps, err := e.bitrate(ctx, file)
	if err != nil || bps <= 0 {
		return false, "bitrate_unknown"
	}
	if bps/1000 <= int64(e.settings.Bitrate) {
		return false, "bitrate_within_target"
	}
	return true, ""
}

func (e *Encoder) encode(ctx context.Context, j job) {
	logger := e.logger.With(logging.String("file", filepath.Base(j.source)))
	if err := e.run(ctx, e.binary, e.args(j)...); err != nil {
		logging.WarnWithContext(logger, "encode failed", "encode_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the encoder binary and ENCODER settings"),
			logging.String(logging.FieldImpact, "original file kept"),
		)
		_ = os.Remove(j.temp)
		return
	}
	if info, err := os.Stat(j.temp); err != nil || info.Size() == 0 {
		logging.WarnWithContext(logger, "encoder produced no output", "encode_empty",
			logging.String("target", j.target),
			logging.String(logging.FieldImpact, "original file kept"),
		)
		_ = os.Remove(j.temp)
		return
	}
	if err := os.Rename(j.temp, j.target); err != nil {
		logging.WarnWithContext(logger, "encoded file not placed", "encode_rename_failed",
			logging.Error(err),
			logging.String("target", j.target),
			logging.String(logging.FieldImpact, "original file kept"),
		)
		_ = os.Remove(j.temp)
		return
	}
	if j.source == j.target {
		return
	}
	if err := os.Remove(j.source); err != nil {
		logger.Warn("original not removed", logging.Error(err))
	}
}

func (e *Encoder) args(j job) []string {
	bitrate := strconv.Itoa(e.settings.Bitrate)
	quality := strconv.Itoa(e.settings.Quality)
	if e.settings.Encoder == "lame" {
		args := []string{"-h"}
		if e.settings.VBRCBR == "vbr" {
			args = append(args, "-V"+quality)
		} else {
			args = append(args, "-b", bitrate)
		}
		return append(args, j.source, j.temp)
	}

	args := []string{"-i", j.source}
	switch e.format() {
	case "ogg":
		args = append(args, "-acodec", "libvorbis")
	case "m4a":
		args = append(args, "-strict", "experimental")
	}
	if e.settings.VBRCBR == "vbr" {
		args = append(args, "-aq", quality)
	} else {
		args = append(args, "-ab", bitrate+"k")
	}
	return append(args, "-y", "-ac", "2", "-vn", j.temp)
}

func mediaFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && tags.IsMedia(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func ffprobeBitrate(binary string) bitrateProbe {
	return func(ctx context.Context, path string) (int64, error) {
		audio, err := ffprobe.Inspect(ctx, binary, path)
		if err != nil {
			return 0, err
		}
		return audio.BitRate, nil
	}
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
