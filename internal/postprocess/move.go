package postprocess

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"headphones/internal/config"
	"headphones/internal/fileutil"
	"headphones/internal/logging"
	"headphones/internal/snatch"
	"headphones/internal/tags"
)

var errPartialMove = errors.New("some files were not moved")

// moveFiles moves the album folder into the library and returns the
// destination folders, lossy first. When a lossless destination is set,
// lossy and lossless media are split between the two roots and other files
// go to both. A destination that cannot be created aborts the move and
// leaves the folder where it is.
func (p *Processor) moveFiles(ctx context.Context, album snatch.Album, dir string) ([]string, error) {
	logger := logging.WithContext(ctx, p.logger)
	pp := p.settings.PostProcess
	folder := FolderPath(pp.FolderFormat, album, pp.FileUnderscores)

	var files []string
	lossy, lossless := false, false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		switch {
		case tags.IsLossless(path):
			lossless = true
		case tags.IsMedia(path):
			lossy = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	makeLossy, makeLossless := true, false
	if pp.LosslessDestinationDir != "" {
		makeLossy, makeLossless = lossy, lossless
	}
	if !makeLossy && !makeLossless {
		return nil, errors.New("no media files to move")
	}

	segments := strings.Split(strings.TrimSpace(pp.FolderFormat), "/")
	albumFolder := strings.Contains(strings.ToLower(segments[len(segments)-1]), "album")

	var lossyDest, losslessDest string
	if makeLossless {
		losslessDest, err = p.prepareDestination(pp.LosslessDestinationDir, folder, albumFolder)
		if err != nil {
			logger.Warn("lossless folder not created", logging.String("album", album.Title), logging.Error(err))
			if !makeLossy {
				return nil, err
			}
			makeLossless = false
		}
	}
	if makeLossy {
		lossyDest, err = p.prepareDestination(pp.DestinationDir, folder, albumFolder)
		if err != nil {
			return nil, err
		}
	}

	failed := 0
	for _, src := range files {
		rel, err := filepath.Rel(dir, src)
		if err != nil {
			rel = filepath.Base(src)
		}
		var moveErr error
		switch {
		case makeLossy && makeLossless && tags.IsLossless(src):
			moveErr = moveInto(src, losslessDest, rel)
		case makeLossy && makeLossless && tags.IsMedia(src):
			moveErr = moveInto(src, lossyDest, rel)
		case makeLossy && makeLossless:
			moveErr = copyInto(src, lossyDest, rel)
			if moveErr == nil {
				moveErr = copyInto(src, losslessDest, rel)
			}
			if moveErr == nil {
				moveErr = os.Remove(src)
			}
		case makeLossless:
			moveErr = moveInto(src, losslessDest, rel)
		default:
			moveErr = moveInto(src, lossyDest, rel)
		}
		if moveErr != nil {
			failed++
			logger.Warn("file not moved", logging.String("file", rel), logging.Error(moveErr))
		}
	}

	var destinations []string
	roots := map[string]string{}
	if makeLossy {
		destinations = append(destinations, lossyDest)
		roots[lossyDest] = pp.DestinationDir
	}
	if makeLossless {
		destinations = append(destinations, losslessDest)
		roots[losslessDest] = pp.LosslessDestinationDir
	}

	if mode, err := config.ParseMode(pp.FolderPermissions); err == nil {
		for _, dest := range destinations {
			chmodSegments(logger, roots[dest], dest, os.FileMode(mode))
		}
	}

	if failed > 0 {
		return destinations, fmt.Errorf("%w: %d of %d left in %s", errPartialMove, failed, len(files), dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("download folder not removed", logging.String("folder", dir), logging.Error(err))
	}
	logger.Info("album moved", logging.Any("destinations", destinations), logging.Int("files", len(files)))
	return destinations, nil
}

// prepareDestination creates root/folder. An existing album folder is
// replaced when REPLACE_EXISTING_FOLDERS is set and otherwise gets a [n]
// suffix; other existing folders are merged into.
func (p *Processor) prepareDestination(root, folder string, albumFolder bool) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(folder))
	if _, err := os.Stat(dest); err == nil && albumFolder {
		duplicate := !p.settings.PostProcess.ReplaceExistingFolders
		if !duplicate {
			if err := os.RemoveAll(dest); err != nil {
				p.logger.Warn("existing folder not replaced, creating a duplicate", logging.String("folder", dest), logging.Error(err))
				duplicate = true
			}
		}
		if duplicate {
			dest = fileutil.UniquePath(dest, true)
		}
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create destination %s: %w", dest, err)
	}
	return dest, nil
}

func moveInto(src, dest, rel string) error {
	target, err := targetPath(dest, rel)
	if err != nil {
		return err
	}
	return fileutil.Move(src, target)
}

func copyInto(src, dest, rel string) error {
	target, err := targetPath(dest, rel)
	if err != nil {
		return err
	}
	return fileutil.CopyFile(src, target)
}

func targetPath(dest, rel string) (string, error) {
	target := filepath.Join(dest, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	return fileutil.UniquePath(target, false), nil
}

// chmodSegments applies mode to each folder between root and dest.
func chmodSegments(logger *slog.Logger, root, dest string, mode os.FileMode) {
	rel, err := filepath.Rel(root, dest)
	if err != nil {
		return
	}
	current := root
	for _, segment := range strings.Split(rel, string(filepath.Separator)) {
		if segment == "" || segment == "." {
			continue
		}
		current = filepath.Join(current, segment)
		if err := os.Chmod(current, mode); err != nil {
			logger.Warn("folder permissions not updated", logging.String("folder", current), logging.Error(err))
		}
	}
}
