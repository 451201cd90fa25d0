package main

import (
	"context"
	"os"

	"github.com/quillsound/booktunes/internal/shared"
	"github.com/quillsound/booktunes/internal/ui"
	"github.com/urfave/cli/v3"
)

// Status reports whether the backend is ready to serve: config present,
// Spotify credentials set, identity provider configured, database reachable.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	_, configErr := os.Stat(configPath)
	r.loadConfig(cmd)

	spotify := r.config.Credentials.Spotify
	credentialsOK := spotify.ClientID != "" && spotify.ClientID != "your_spotify_client_id" &&
		spotify.ClientSecret != "" && spotify.ClientSecret != "your_spotify_client_secret"

	dbOK := false
	dbDetail := r.config.Database.Path
	if db, err := shared.NewDatabase(r.config.Database.Path); err == nil {
		dbOK = true
		db.Close()
	} else {
		dbDetail = err.Error()
	}

	r.writePlain("%s\n", ui.Title("booktunes status"))
	r.writePlain("%s\n", ui.Check("config file", configErr == nil, configPath))
	r.writePlain("%s\n", ui.Check("spotify credentials", credentialsOK, ""))
	r.writePlain("%s\n", ui.Check("identity provider", r.config.Identity.URL != "", r.config.Identity.URL))
	r.writePlain("%s\n", ui.Check("database", dbOK, dbDetail))
	r.writePlain("%s\n", ui.Dim("serve address: "+r.config.Server.Addr()))

	return nil
}

// statusCommand reports backend readiness.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check configuration and database readiness",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Status,
	}
}
