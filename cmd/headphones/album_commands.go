package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"headphones/internal/snatch"
)

// releaseFile is the YAML form of one catalog release. A file may hold
// several documents.
type releaseFile struct {
	Artist struct {
		ID   string `yaml:"id" validate:"required"`
		Name string `yaml:"name" validate:"required"`
	} `yaml:"artist"`
	Album struct {
		ID          string `yaml:"id" validate:"required"`
		Title       string `yaml:"title" validate:"required"`
		ReleaseDate string `yaml:"release_date"`
		Type        string `yaml:"type"`
		Status      string `yaml:"status"`
		ArtworkURL  string `yaml:"artwork_url" validate:"omitempty,url"`
	} `yaml:"album"`
	Tracks []releaseTrack `yaml:"tracks" validate:"required,min=1,dive"`
}

type releaseTrack struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title" validate:"required"`
	Number   int           `yaml:"number" validate:"gte=0"`
	Disc     int           `yaml:"disc" validate:"gte=0"`
	Duration time.Duration `yaml:"duration" validate:"gte=0"`
}

var releaseValidator = validator.New()

// decodeReleases reads every YAML document from r.
func decodeReleases(r io.Reader) ([]snatch.Release, error) {
	dec := yaml.NewDecoder(r)
	var releases []snatch.Release
	for {
		var doc releaseFile
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse release: %w", err)
		}
		release, err := doc.release()
		if err != nil {
			return nil, fmt.Errorf("release %d: %w", len(releases)+1, err)
		}
		releases = append(releases, release)
	}
	if len(releases) == 0 {
		return nil, errors.New("no releases found")
	}
	return releases, nil
}

func (f releaseFile) release() (snatch.Release, error) {
	if err := releaseValidator.Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return snatch.Release{}, fmt.Errorf("%s failed %q", fieldErrs[0].Namespace(), fieldErrs[0].Tag())
		}
		return snatch.Release{}, err
	}
	status := snatch.AlbumWanted
	if f.Album.Status != "" {
		parsed, ok := snatch.ParseAlbumStatus(f.Album.Status)
		if !ok {
			return snatch.Release{}, fmt.Errorf("unknown album status %q", f.Album.Status)
		}
		status = parsed
	}
	release := snatch.Release{Album: snatch.Album{
		ID:          f.Album.ID,
		ArtistID:    f.Artist.ID,
		ArtistName:  f.Artist.Name,
		Title:       f.Album.Title,
		ReleaseDate: f.Album.ReleaseDate,
		Type:        f.Album.Type,
		Status:      status,
		ArtworkURL:  f.Album.ArtworkURL,
	}}
	for i, tr := range f.Tracks {
		number := tr.Number
		if number == 0 {
			number = i + 1
		}
		disc := tr.Disc
		if disc == 0 {
			disc = 1
		}
		id := tr.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d-%02d", f.Album.ID, disc, number)
		}
		release.Tracks = append(release.Tracks, snatch.Track{
			ID:         id,
			AlbumID:    f.Album.ID,
			Title:      tr.Title,
			Number:     number,
			Disc:       disc,
			DurationMS: tr.Duration.Milliseconds(),
		})
	}
	return release, nil
}

func importRelease(ctx context.Context, store *snatch.Store, release snatch.Release) error {
	artist := snatch.Artist{ID: release.Album.ArtistID, Name: release.Album.ArtistName}
	if err := store.UpsertArtist(ctx, artist); err != nil {
		return err
	}
	if err := store.UpsertAlbum(ctx, release.Album); err != nil {
		return err
	}
	return store.ReplaceTracks(ctx, release.Album.ID, release.Tracks)
}

func newAlbumCommand(ctx *commandContext) *cobra.Command {
	albumCmd := &cobra.Command{
		Use:   "album",
		Short: "Manage the album catalog",
	}
	albumCmd.AddCommand(newAlbumAddCommand(ctx))
	albumCmd.AddCommand(newAlbumListCommand(ctx))
	albumCmd.AddCommand(newAlbumStatusCommand(ctx, "want", snatch.AlbumWanted))
	albumCmd.AddCommand(newAlbumStatusCommand(ctx, "skip", snatch.AlbumSkipped))
	return albumCmd
}

func newAlbumAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <release.yaml|->",
		Short: "Import releases (artist, album and tracks) from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open release file: %w", err)
				}
				defer file.Close()
				src = file
			}
			releases, err := decodeReleases(src)
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()
			for _, release := range releases {
				if err := importRelease(cmd.Context(), store, release); err != nil {
					return err
				}
				fmt.Fprintf(out, "Added %s - %s (%d tracks, %s)\n",
					release.Album.ArtistName, release.Album.Title, len(release.Tracks), release.Album.Status)
			}
			return nil
		},
	}
}

func newAlbumListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog albums with a status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := snatch.ParseAlbumStatus(statusFlag)
			if !ok {
				return fmt.Errorf("unknown album status %q", statusFlag)
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			albums, err := store.AlbumsByStatus(cmd.Context(), status)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(albums) == 0 {
				fmt.Fprintf(out, "No %s albums\n", strings.ToLower(string(status)))
				return nil
			}
			rows := make([][]string, 0, len(albums))
			for _, album := range albums {
				rows = append(rows, []string{album.ID, album.ArtistName, album.Title, album.Year(), string(album.Status)})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Artist", "Album", "Year", "Status"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&statusFlag, "status", "s", string(snatch.AlbumWanted), "Album status (Skipped, Wanted, Snatched, Downloaded)")
	return cmd
}

func newAlbumStatusCommand(ctx *commandContext, verb string, status snatch.AlbumStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <album>",
		Short: fmt.Sprintf("Mark an album %s", strings.ToLower(string(status))),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			album, err := resolveAlbum(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := store.SetAlbumStatus(cmd.Context(), album.ID, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s - %s is now %s\n", album.ArtistName, album.Title, status)
			return nil
		},
	}
}
