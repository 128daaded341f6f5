package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/archivecmd"
	"github.com/fussin-and-lovin/archiver/internal/handlers"
	"github.com/fussin-and-lovin/archiver/internal/storage"
)

func newServeCmd() *cobra.Command {
	var port, songsPath, entriesPath, staticDir, coversDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the datasets as read-only JSON",
		Long: `Loads songs.json and entries.json once and serves them, along with the
relationship graph and statistics, on the specified port.

Routes:
  /api/songs             all songs (?genre=, ?artist=, ?tragic=1)
  /api/songs/{number}    one song with its entry, posting date and cover
  /api/entries           all entries
  /api/graph             the relationship graph
  /api/stats             statistics (?top=)
  /api/issues            join problems found while loading`,
		Example: `  # Start server on default port 8888
  archiver serve

  # Serve the site and its covers too
  archiver serve --static public --covers public/covers --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := archivecmd.LoadConfig(path)
			if err != nil {
				return err
			}
			if songsPath == "" {
				songsPath = cfg.Songs
			}
			if entriesPath == "" {
				entriesPath = cfg.Entries
			}

			store := storage.New(songsPath, entriesPath)
			if err := store.Load(cmd.Context()); err != nil {
				return err
			}
			for _, issue := range store.Issues() {
				slog.Warn("Needs review", "kind", issue.Kind, "number", issue.Number, "message", issue.Message)
			}

			handler := handlers.New(store, staticDir, coversDir)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Archive API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&songsPath, "songs", "", "Path to songs.json")
	cmd.Flags().StringVar(&entriesPath, "entries", "", "Path to entries.json")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory of static site files to serve at /")
	cmd.Flags().StringVar(&coversDir, "covers", "", "Directory of album covers to serve at /covers/")

	return cmd
}
