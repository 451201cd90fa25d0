package main

import (
	"context"
	"fmt"

	"github.com/quillsound/booktunes/internal/shared"
	"github.com/quillsound/booktunes/internal/store"
	"github.com/urfave/cli/v3"
)

// CachedPlaylists prints the playlist snapshots cached for a user.
//
// Snapshots are written as a side effect of the get_playlists action; this
// command inspects them without touching the upstream API.
func (r *Runner) CachedPlaylists(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	userID := cmd.String("user")
	if userID == "" {
		return fmt.Errorf("%w: user", shared.ErrMissingArgument)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	snapshots, err := store.NewSQLiteStore(db).ListPlaylists(ctx, userID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snapshots, cmd.Bool("pretty"))
	}

	if len(snapshots) == 0 {
		return r.writePlain("No cached playlists for user %s\n", userID)
	}

	r.writePlain("Cached playlists for %s:\n", userID)
	for _, snap := range snapshots {
		r.writePlain("  %s  %s (%d tracks, fetched %s)\n",
			snap.SpotifyPlaylistID, snap.Name, snap.TrackCount, snap.FetchedAt.Format("2006-01-02 15:04"))
	}

	return nil
}

// cacheCommand inspects locally cached playlist snapshots.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect cached playlist snapshots",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List cached playlist snapshots for a user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Usage:    "Local user ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.CachedPlaylists,
			},
		},
	}
}
