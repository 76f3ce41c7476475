package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"headphones/internal/api"
	"headphones/internal/ipc"
	"headphones/internal/snatch"
)

func newSnatchCommand(ctx *commandContext) *cobra.Command {
	snatchCmd := &cobra.Command{
		Use:   "snatch",
		Short: "Inspect and maintain snatched downloads",
	}
	snatchCmd.AddCommand(newSnatchListCommand(ctx))
	snatchCmd.AddCommand(newSnatchShowCommand(ctx))
	snatchCmd.AddCommand(newSnatchClearCommand(ctx))
	return snatchCmd
}

func parseStatusFlags(values []string) ([]snatch.Status, error) {
	statuses := make([]snatch.Status, 0, len(values))
	for _, value := range values {
		status, ok := snatch.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown snatch status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func statusNames(statuses []snatch.Status) []string {
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return names
}

func newSnatchListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snatches, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFlags(statusFlags)
			if err != nil {
				return err
			}
			var items []api.Snatch
			online, err := ctx.withDaemon(func(client *ipc.Client) error {
				resp, err := client.SnatchList(statusNames(statuses))
				if err != nil {
					return err
				}
				items = resp.Items
				return nil
			})
			if err != nil {
				return err
			}
			if !online {
				store, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				recs, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				items = api.FromSnatches(recs)
			}

			if asJSON {
				return writeJSON(cmd, api.SnatchListResponse{Items: items})
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No snatches")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Kind", "Size", "Status", "Updated"},
				snatchRows(items, time.Now()),
				1, 4,
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (Snatched, Processed, Unprocessed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print snatches as JSON")
	return cmd
}

func snatchRows(items []api.Snatch, now time.Time) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		updated := item.UpdatedAt
		if parsed, err := time.Parse(time.RFC3339, item.UpdatedAt); err == nil {
			updated = humanize.RelTime(parsed, now, "ago", "from now")
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10), item.Title, item.Kind, item.SizeLabel, item.Status, updated,
		})
	}
	return rows
}

func newSnatchShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one snatch as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid snatch id %q", args[0])
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			rec, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("snatch %d not found", id)
			}
			return writeJSON(cmd, api.FromSnatch(rec))
		},
	}
}

func newSnatchClearCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove processed and unprocessed snatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFlags(statusFlags)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				statuses = []snatch.Status{snatch.StatusProcessed, snatch.StatusUnprocessed}
			}
			var removed int64
			online, err := ctx.withDaemon(func(client *ipc.Client) error {
				resp, err := client.SnatchClear(statusNames(statuses))
				if err != nil {
					return err
				}
				removed = resp.Removed
				return nil
			})
			if err != nil {
				return err
			}
			if !online {
				store, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				removed, err = store.Clear(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snatch(es)\n", removed)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Statuses to clear (Snatched records are always kept)")
	return cmd
}
