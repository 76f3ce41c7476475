package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"headphones/internal/config"
	"headphones/internal/daemonctl"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and indexer settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.settings()
			if err != nil {
				return err
			}
			rep := newReport(cmd.OutOrStdout())

			rep.section("Configuration")
			if err := settings.Validate(); err != nil {
				rep.line("Settings", levelError, err.Error())
			} else {
				rep.line("Settings", levelOK, "valid")
			}
			checkDirectories(rep, settings)
			rep.line("Newznab", levelInfo, "enabled: "+yesNo(settings.Usenet.Enabled))
			rep.line("Torznab", levelInfo, "enabled: "+yesNo(settings.Torrent.Enabled))

			rep.section("Dependencies")
			rep.dependencies(daemonctl.Dependencies(settings))

			if rep.problems > 0 {
				return fmt.Errorf("%d problem(s) found", rep.problems)
			}
			return nil
		},
	}
}

// checkDirectories reports whether each configured directory exists and is
// writable. Unset optional directories are informational.
func checkDirectories(rep *report, settings config.Settings) {
	dirs := []struct {
		label    string
		path     string
		required bool
	}{
		{"Data dir", settings.General.DataDir, true},
		{"Destination", settings.PostProcess.DestinationDir, false},
		{"Lossless dest", settings.PostProcess.LosslessDestinationDir, false},
		{"Usenet downloads", settings.Usenet.DownloadDir, false},
		{"Torrent downloads", settings.Torrent.DownloadDir, false},
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir.path)
		if path == "" {
			if dir.required {
				rep.line(dir.label, levelError, "not set")
			} else {
				rep.line(dir.label, levelInfo, "not set")
			}
			continue
		}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			rep.line(dir.label, levelError, err.Error())
		case !info.IsDir():
			rep.line(dir.label, levelError, path+" is not a directory")
		case unix.Access(path, unix.W_OK) != nil:
			rep.line(dir.label, levelError, path+" is not writable")
		default:
			rep.line(dir.label, levelOK, path)
		}
	}
}
