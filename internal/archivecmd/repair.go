package archivecmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/linker"
)

// NewRepairCmd creates the repair command and its artists/titles subcommands
func NewRepairCmd() *cobra.Command {
	var songsPath, entriesPath string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Copy canonical names from songs.json onto entries.json",
		Long: `Repair entries whose artist or song title has drifted from the matching
song record. entries.json is backed up to entries.json.backup before it is
rewritten.`,
	}

	run := func(fields linker.Field) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			return executeRepair(pick(songsPath, cfg.Songs), pick(entriesPath, cfg.Entries), fields, dryRun)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "artists",
		Short:   "Clean artist names and copy them onto entries",
		Example: "  archiver repair artists --dry-run",
		RunE:    run(linker.FieldArtist),
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "titles",
		Short:   "Copy song titles onto entries",
		Example: "  archiver repair titles",
		RunE:    run(linker.FieldTitle),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Repair artist names and song titles",
		RunE:  run(linker.FieldAll),
	})

	cmd.PersistentFlags().StringVar(&songsPath, "songs", "", "Path to songs.json")
	cmd.PersistentFlags().StringVar(&entriesPath, "entries", "", "Path to entries.json")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Show changes without writing")

	return cmd
}

func executeRepair(songsPath, entriesPath string, fields linker.Field, dryRun bool) error {
	songs, _, err := dataset.ReadSongs(songsPath)
	if err != nil {
		return fmt.Errorf("failed to read songs: %w", err)
	}
	entries, kept, _, err := dataset.ReadEntriesForRewrite(entriesPath)
	if err != nil {
		return fmt.Errorf("failed to read entries: %w", err)
	}

	drifted := linker.Link(songs, entries).Drift()
	slog.Info("Entries out of step with songs.json", "count", len(drifted))

	changes := linker.Repair(songs, entries, fields)
	for _, c := range changes {
		fmt.Printf("#%d %s: %q -> %q\n", c.Number, c.Field, c.Old, c.New)
	}
	fmt.Printf("%d changes\n", len(changes))

	if dryRun || len(changes) == 0 {
		return nil
	}
	if err := dataset.WriteEntries(entriesPath, entries, dataset.WriteOptions{Backup: true}, kept...); err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}
	return nil
}
