package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// entries limits ffprobe output to what audio tagging needs.
const entries = "format=duration,bit_rate:format_tags:stream=codec_name,codec_type,sample_rate,channels:stream_tags"

// Audio is what ffprobe reports about the first audio stream of a file.
type Audio struct {
	Codec      string
	SampleRate int
	Channels   int
	BitRate    int64
	Duration   time.Duration

	// tags are keyed by lower-cased name. Container tags win over stream
	// tags; Ogg and Opus keep theirs on the stream.
	tags map[string]string
}

// Tag returns a tag by case-insensitive name, or "".
func (a Audio) Tag(name string) string {
	return a.tags[strings.ToLower(name)]
}

type output struct {
	Streams []struct {
		CodecName  string            `json:"codec_name"`
		CodecType  string            `json:"codec_type"`
		SampleRate string            `json:"sample_rate"`
		Channels   int               `json:"channels"`
		Tags       map[string]string `json:"tags"`
	} `json:"streams"`
	Format struct {
		Duration string            `json:"duration"`
		BitRate  string            `json:"bit_rate"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

// Inspect runs binary (ffprobe when empty) against path.
func Inspect(ctx context.Context, binary, path string) (Audio, error) {
	if strings.TrimSpace(path) == "" {
		return Audio{}, errors.New("ffprobe: empty path")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-show_entries", entries, "-of", "json", "--", path)
	out, err := cmd.Output()
	if err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return Audio{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(exit.Stderr)))
		}
		return Audio{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return Parse(out)
}

// Parse decodes ffprobe JSON. Files without an audio stream are rejected.
func Parse(data []byte) (Audio, error) {
	var raw output
	if err := json.Unmarshal(data, &raw); err != nil {
		return Audio{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	audio := Audio{tags: map[string]string{}}
	found := false
	for _, s := range raw.Streams {
		if !strings.EqualFold(s.CodecType, "audio") {
			continue
		}
		if !found {
			found = true
			audio.Codec = s.CodecName
			audio.SampleRate, _ = strconv.Atoi(s.SampleRate)
			audio.Channels = s.Channels
		}
		mergeTags(audio.tags, s.Tags)
	}
	if !found {
		return Audio{}, errors.New("ffprobe parse: no audio stream")
	}
	mergeTags(audio.tags, raw.Format.Tags)

	audio.BitRate, _ = strconv.ParseInt(strings.TrimSpace(raw.Format.BitRate), 10, 64)
	audio.BitRate = max(audio.BitRate, 0)
	if seconds, err := strconv.ParseFloat(strings.TrimSpace(raw.Format.Duration), 64); err == nil && seconds > 0 {
		audio.Duration = time.Duration(seconds * float64(time.Second))
	}
	return audio, nil
}

// mergeTags copies src into dst, overwriting.
func mergeTags(dst, src map[string]string) {
	for k, v := range src {
		if v = strings.TrimSpace(v); v != "" {
			dst[strings.ToLower(k)] = v
		}
	}
}
