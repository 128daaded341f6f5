package archivecmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/storage"
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	var songsPath, entriesPath, format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the datasets to Parquet or SQLite",
		Long: `Write the assembled songs (and, for SQLite, the entries) in a format that
analysis tools can query. Parquet holds one flat row per song; SQLite holds
songs, entries, genres and related artists in separate tables.`,
		Example: `  archiver export --format parquet --output songs.parquet
  archiver export --format sqlite --output archive.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				switch format {
				case "sqlite":
					output = cfg.Output("archive.db")
				default:
					output = cfg.Output("songs.parquet")
				}
			}
			return executeExport(cmd.Context(), pick(songsPath, cfg.Songs), pick(entriesPath, cfg.Entries), format, output)
		},
	}

	cmd.Flags().StringVar(&songsPath, "songs", "", "Path to songs.json")
	cmd.Flags().StringVar(&entriesPath, "entries", "", "Path to entries.json")
	cmd.Flags().StringVar(&format, "format", "parquet", "Export format: parquet or sqlite")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")

	return cmd
}

func executeExport(ctx context.Context, songsPath, entriesPath, format, output string) error {
	songs, _, err := dataset.ReadSongs(songsPath)
	if err != nil {
		return fmt.Errorf("failed to read songs: %w", err)
	}

	switch format {
	case "parquet":
		if err := dataset.WriteParquet(output, songs); err != nil {
			return err
		}
	case "sqlite":
		entries, _, err := dataset.ReadEntries(entriesPath)
		if err != nil {
			return fmt.Errorf("failed to read entries: %w", err)
		}
		if err := storage.ExportSQLite(ctx, output, songs, entries); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s (supported: parquet, sqlite)", format)
	}

	slog.Info("Exported dataset", "format", format, "path", output, "songs", len(songs))
	return nil
}
