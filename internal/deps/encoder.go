package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"headphones/internal/config"
)

// ResolveEncoder reports the encoder binary post-processing will execute.
// A configured ENCODER_PATH wins; otherwise the encoder name ("ffmpeg" or
// "lame") is resolved from PATH.
func ResolveEncoder(encoder, configured string) Status {
	name := strings.TrimSpace(encoder)
	if name == "" {
		name = "ffmpeg"
	}
	result := Status{
		Name:        name,
		Description: "Re-encodes downloads to the target format",
	}
	if configured = strings.TrimSpace(configured); configured != "" {
		result.Command = configured
		if info, err := os.Stat(configured); err == nil && isExecutable(info) {
			result.Available = true
			return result
		}
		result.Detail = fmt.Sprintf("configured encoder %q is not executable", configured)
		return result
	}
	return lookup(result, name)
}

// ResolveFFprobe reports the ffprobe binary used to read tags the native
// readers do not cover. An ffprobe next to a configured ffmpeg binary is
// preferred over PATH.
func ResolveFFprobe(encoderPath string) Status {
	result := Status{
		Name:        "ffprobe",
		Description: "Reads tags and durations of non MP3/FLAC files",
		Optional:    true,
	}
	if encoderPath = strings.TrimSpace(encoderPath); encoderPath != "" {
		candidate := sidecar(encoderPath, "ffprobe")
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}
	return lookup(result, "ffprobe")
}

// Check reports every external binary the settings call for.
func Check(settings config.Settings) []Status {
	probe := ResolveFFprobe(settings.Encoder.Path)
	encoder := ResolveEncoder(settings.Encoder.Encoder, settings.Encoder.Path)
	encoder.Optional = !settings.PostProcess.MusicEncoder
	return []Status{encoder, probe}
}

func lookup(result Status, name string) Status {
	if resolved, err := exec.LookPath(name); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}
	result.Command = name
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}

func sidecar(binaryPath, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(binaryPath), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
