package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"headphones/internal/api"
	"headphones/internal/config"
	"headphones/internal/ipc"
	"headphones/internal/postprocess"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var async bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Verify the download folders of snatched albums",
		Long: "Verify the download folders of snatched albums.\n\n" +
			"When the daemon is running the scan runs inside it; otherwise it runs in this process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var results []api.ScanResult
			online, err := ctx.withDaemon(func(client *ipc.Client) error {
				resp, err := client.Scan(async)
				if err != nil {
					return err
				}
				if async {
					if resp.Accepted {
						fmt.Fprintln(cmd.OutOrStdout(), "Scan queued")
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "A scan is already queued")
					}
					return nil
				}
				results = resp.Results
				return nil
			})
			if err != nil {
				return err
			}
			if online && async {
				return nil
			}
			if !online {
				results, err = runLocal(ctx, func(proc *postprocess.Processor) ([]postprocess.Result, error) {
					return proc.CheckFolders(cmd.Context())
				})
				if err != nil {
					return err
				}
			}
			return printScanResults(cmd, results, asJSON)
		},
	}
	cmd.Flags().BoolVar(&async, "async", false, "Queue the scan on the running daemon without waiting")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var opts postprocess.ForceOptions
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "verify [folder]",
		Short: "Force-process download folders, identifying albums without a snatch record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				dir, err := config.ExpandPath(args[0])
				if err != nil {
					return err
				}
				opts.AlbumDir = dir
			}
			if opts.Dir != "" {
				dir, err := config.ExpandPath(opts.Dir)
				if err != nil {
					return err
				}
				opts.Dir = dir
			}
			results, err := runLocal(ctx, func(proc *postprocess.Processor) ([]postprocess.Result, error) {
				return proc.ForceProcess(cmd.Context(), opts)
			})
			if err != nil {
				return err
			}
			return printScanResults(cmd, results, asJSON)
		},
	}
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "Scan this directory instead of the download directories")
	cmd.Flags().BoolVar(&opts.ExpandSubfolders, "expand", false, "Descend into folders that hold several albums")
	cmd.Flags().BoolVar(&opts.Forced, "force", false, "Process folders that still contain partial downloads")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func runLocal(ctx *commandContext, fn func(*postprocess.Processor) ([]postprocess.Result, error)) ([]api.ScanResult, error) {
	settings, err := ctx.settings()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	store, err := ctx.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	results, err := fn(postprocess.NewProcessor(settings, store, ctx.commandLogger()))
	if err != nil {
		return nil, err
	}
	return api.FromResults(results), nil
}

func printScanResults(cmd *cobra.Command, results []api.ScanResult, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, api.ScanResponse{Results: results})
	}
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No download folders to process")
		return nil
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		location := r.Folder
		if len(r.Destinations) > 0 {
			location = strings.Join(r.Destinations, ", ")
		}
		rows = append(rows, []string{r.AlbumID, r.Outcome, r.Match, location})
	}
	fmt.Fprintln(out, renderTable([]string{"Album", "Outcome", "Match", "Location"}, rows))
	return nil
}
