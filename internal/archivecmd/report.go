package archivecmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/graph"
	"github.com/fussin-and-lovin/archiver/internal/stats"
)

// NewGraphCmd creates the graph command
func NewGraphCmd() *cobra.Command {
	var songsPath, output string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Write the song relationship graph as JSON",
		Long: `Build the node/link graph the site draws: songs are nodes, and links join
songs that share an artist, credit each other, mention each other or share a
genre.`,
		Example: `  archiver graph > graph.json
  archiver graph --output public/graph.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			return executeGraph(pick(songsPath, cfg.Songs), output)
		},
	}

	cmd.Flags().StringVar(&songsPath, "songs", "", "Songs dataset (.json, .jsonl or .parquet)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func executeGraph(songsPath, output string) error {
	songs, err := dataset.NewLoader(songsPath).Load()
	if err != nil {
		return fmt.Errorf("failed to read songs: %w", err)
	}

	g := graph.Build(songs)
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	data = append(data, '\n')

	if output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := dataset.WriteFileAtomic(output, data, dataset.WriteOptions{}); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	slog.Info("Wrote graph", "path", output, "nodes", len(g.Nodes), "links", len(g.Links))
	return nil
}

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	var songsPath, format, coverage string
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize word counts, genres, artists and tragic flags",
		Example: `  archiver stats
  archiver stats --format yaml --top 20
  archiver stats --coverage data/unique_artists_cleaned.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			f, err := stats.ParseFormat(format)
			if err != nil {
				return err
			}
			return executeStats(pick(songsPath, cfg.Songs), f, top, coverage)
		},
	}

	cmd.Flags().StringVar(&songsPath, "songs", "", "Songs dataset (.json, .jsonl or .parquet)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, yaml or json")
	cmd.Flags().IntVar(&top, "top", 10, "Genres and artists to list (0 for all)")
	cmd.Flags().StringVar(&coverage, "coverage", "", "Also write per-artist coverage CSV to this path")

	return cmd
}

func executeStats(songsPath string, format stats.Format, top int, coverage string) error {
	songs, err := dataset.NewLoader(songsPath).Load()
	if err != nil {
		return fmt.Errorf("failed to read songs: %w", err)
	}

	if err := stats.Write(os.Stdout, stats.Compute(songs, top), format); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}

	if coverage != "" {
		rows := stats.ArtistCoverage(songs)
		if err := dataset.WriteArtistCoverage(coverage, rows); err != nil {
			return fmt.Errorf("failed to write artist coverage: %w", err)
		}
		slog.Info("Wrote artist coverage", "path", coverage, "artists", len(rows))
	}
	return nil
}
