package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/quillsound/booktunes/internal/auth"
	"github.com/quillsound/booktunes/internal/server"
	"github.com/quillsound/booktunes/internal/services"
	"github.com/quillsound/booktunes/internal/shared"
	"github.com/quillsound/booktunes/internal/store"
	"github.com/quillsound/booktunes/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve starts the HTTP backend: opens the database, applies pending
// migrations, wires the token manager and library engine, and listens until
// interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	if err := r.config.Validate(); err != nil {
		return err
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify)
	if err != nil {
		return err
	}

	sqlStore := store.NewSQLiteStore(db)
	manager := auth.NewManager(sqlStore, spotify, r.logger)
	engine := tasks.NewLibraryEngine(manager, spotify, sqlStore, r.logger)
	verifier := server.NewHTTPVerifier(r.config.Identity.URL, r.config.Identity.APIKey, r.httpClient)

	router := server.NewBasicRouter()
	router.Use(
		server.CORS(),
		server.RequestLogger(r.logger),
		server.RateLimit(r.config.Server.RateLimitRPS, r.config.Server.RateLimitBurst),
	)
	router.Handler(server.NewAuthHandler(manager, verifier, r.config.Server.FrontendURL, r.logger))
	router.Handler(server.NewDataHandler(engine, verifier, r.logger))

	srv := &http.Server{
		Addr:         r.config.Server.Addr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		r.logger.Infof("listening on %s", srv.Addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		r.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}

	return nil
}

// serveCommand starts the backend HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the booktunes backend HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Serve,
	}
}
