package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/archivecmd"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "archiver",
		Short: "Data pipeline for the Fussin' & Lovin' song archive",
		Long: `Archiver builds the datasets behind the Fussin' & Lovin' song archive.

It parses archived entries, links them to song records, counts the words of
each write-up, standardizes genres, flags artists, builds the relationship
graph, and serves the result as read-only JSON.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().String("config", "", "Config file with default paths (default ./"+archivecmd.DefaultConfigFile+" if present)")

	// Add subcommands
	cmd.AddCommand(archivecmd.NewAssembleCmd())
	cmd.AddCommand(archivecmd.NewWordcountCmd())
	cmd.AddCommand(archivecmd.NewInspectCmd())
	cmd.AddCommand(archivecmd.NewRepairCmd())
	cmd.AddCommand(archivecmd.NewGraphCmd())
	cmd.AddCommand(archivecmd.NewStatsCmd())
	cmd.AddCommand(archivecmd.NewIngestCmd())
	cmd.AddCommand(archivecmd.NewEnrichCmd())
	cmd.AddCommand(archivecmd.NewCoversCmd())
	cmd.AddCommand(archivecmd.NewExportCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
