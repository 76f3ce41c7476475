package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"headphones/internal/daemonctl"
	"headphones/internal/daemonrun"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the headphones daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			settings, err := ctx.settings()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}

			result, err := daemonctl.Start(cmd.Context(), daemonctl.PathsFor(settings), exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath(),
				LogLevel:   ctx.logLevel(""),
			}, 10*time.Second)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			case daemonctl.StartStateRequested:
				fmt.Fprintln(stdout, result.Message)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the headphones daemon (terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			settings, err := ctx.settings()
			if err != nil {
				return err
			}
			result, err := daemonctl.Stop(cmd.Context(), daemonctl.PathsFor(settings), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Killed daemon process (pid %d)\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and snatch status",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.settings()
			if err != nil {
				return err
			}
			status, err := daemonctl.Snapshot(cmd.Context(), settings)
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, status)
			}

			rep := newReport(cmd.OutOrStdout())
			rep.section("Daemon")
			if status.Running {
				rep.line("Daemon", levelOK, fmt.Sprintf("running (pid %d)", status.PID))
			} else {
				rep.line("Daemon", levelInfo, "not running")
			}
			if status.LastScan != "" {
				rep.line("Last scan", levelInfo, status.LastScan)
			}
			if status.LastSearch != "" {
				rep.line("Last search", levelInfo, status.LastSearch)
			}
			if status.LastError != "" {
				rep.line("Last error", levelWarn, status.LastError)
			}
			rep.line("Database", levelInfo, status.DatabasePath)

			rep.section("Dependencies")
			rep.dependencies(status.Dependencies)

			rep.section("Snatches")
			fmt.Fprintln(rep.w, renderTable([]string{"Status", "Count"}, snatchStatusRows(status.Snatches), 2))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var development bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the headphones daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    ctx.logLevel(""),
				Development: development,
			})
		},
	}
	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log output")
	return cmd
}
