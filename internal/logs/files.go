package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"headphones/internal/config"
)

// ErrNoLogFile is returned when the log directory holds no daemon log.
var ErrNoLogFile = errors.New("no daemon log file found")

// Dir returns the directory the daemon writes dated logs to.
func Dir(settings config.Settings) string {
	return filepath.Join(settings.General.DataDir, "logs")
}

// Latest returns the newest headphones-YYYYMMDD.log in dir. The dated names
// sort chronologically.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "headphones-*.log"))
	if err != nil {
		return "", fmt.Errorf("list log files: %w", err)
	}
	files := matches[:0]
	for _, match := range matches {
		if info, statErr := os.Stat(match); statErr == nil && !info.IsDir() {
			files = append(files, match)
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoLogFile, dir)
	}
	sort.Strings(files)
	return files[len(files)-1], nil
}
