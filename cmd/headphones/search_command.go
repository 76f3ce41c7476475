package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"headphones/internal/ipc"
	"headphones/internal/search"
	"headphones/internal/snatch"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var listOnly bool
	cmd := &cobra.Command{
		Use:   "search [album]",
		Short: "Search indexers for wanted albums and snatch the best release",
		Long: "Search indexers for wanted albums and snatch the best release.\n\n" +
			"Without an argument every wanted album is searched (by the daemon when it is running).\n" +
			"An album is named by id or as \"Artist - Album\".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				if listOnly {
					return fmt.Errorf("--list requires an album")
				}
				online, err := ctx.withDaemon(func(client *ipc.Client) error {
					resp, err := client.Search()
					if err != nil {
						return err
					}
					if resp.Accepted {
						fmt.Fprintln(out, "Search queued on the daemon")
					} else {
						fmt.Fprintln(out, "A search is already queued")
					}
					return nil
				})
				if err != nil || online {
					return err
				}
			}

			settings, err := ctx.settings()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			logger := ctx.commandLogger()
			searcher := search.NewSearcher(settings, store, search.ProvidersFromSettings(settings, logger), nil, logger)

			if len(args) == 0 {
				count, err := searcher.SearchWanted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Snatched %d album(s)\n", count)
				return nil
			}

			album, err := resolveAlbum(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if listOnly {
				results, err := searcher.Candidates(cmd.Context(), album.ID)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(out, "No acceptable releases found")
					return nil
				}
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{
						r.Title, r.Provider, string(r.Kind), humanize.Bytes(uint64(r.Size)),
						strconv.Itoa(r.Seeders), strconv.FormatFloat(r.Priority, 'f', 2, 64),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Title", "Provider", "Kind", "Size", "Seeders", "Priority"}, rows,
					4, 5, 6,
				))
				return nil
			}

			rec, err := searcher.SearchAlbum(cmd.Context(), album.ID)
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Fprintf(out, "No acceptable release for %s - %s\n", album.ArtistName, album.Title)
				return nil
			}
			fmt.Fprintf(out, "Snatched %q (%s, %s)\n", rec.Title, rec.Kind, humanize.Bytes(uint64(rec.Size)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&listOnly, "list", false, "List acceptable releases without snatching")
	return cmd
}

// resolveAlbum finds an album by id, then by "Artist - Album".
func resolveAlbum(ctx context.Context, store *snatch.Store, ref string) (*snatch.Album, error) {
	ref = strings.TrimSpace(ref)
	album, err := store.Album(ctx, ref)
	if err != nil {
		return nil, err
	}
	if album != nil {
		return album, nil
	}
	if artist, title, ok := strings.Cut(ref, " - "); ok {
		album, err = store.FindAlbum(ctx, strings.TrimSpace(artist), strings.TrimSpace(title))
		if err != nil {
			return nil, err
		}
		if album != nil {
			return album, nil
		}
	}
	return nil, fmt.Errorf("album %q not found", ref)
}
