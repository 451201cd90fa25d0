package main

import (
	"context"
	"fmt"

	"github.com/quillsound/booktunes/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and applies pending migrations, or
// rolls back the latest one with --rollback.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
		return r.writePlain("✓ Rolled back latest migration\n")
	}

	r.logger.Infof("applying migrations to %s", r.config.Database.Path)
	if err := shared.RunMigrations(db); err != nil {
		return err
	}

	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}

// SetupConfig writes a starter config.toml to the given path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	return r.writePlain("✓ Config written to %s\n", path)
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a starter configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Destination for the config file",
						Value: "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}
