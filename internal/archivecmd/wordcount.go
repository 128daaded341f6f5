package archivecmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/linker"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/stats"
	"github.com/fussin-and-lovin/archiver/internal/wordcount"
)

// NewWordcountCmd creates the wordcount command
func NewWordcountCmd() *cobra.Command {
	var songsPath, entriesPath, csvPath, policy string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "wordcount",
		Short: "Recompute word counts on songs.json",
		Long: `Recount the words of every entry's write-up and store the counts on the
matching songs. songs.json is backed up and rewritten in place, and the counts
are also written to word_counts.csv.`,
		Example: `  archiver wordcount
  archiver wordcount --policy zero --csv /tmp/word_counts.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			songsPath = pick(songsPath, cfg.Songs)
			entriesPath = pick(entriesPath, cfg.Entries)
			csvPath = pick(csvPath, cfg.Output("word_counts.csv"))
			return executeWordcount(songsPath, entriesPath, csvPath, wordcount.ParsePolicy(policy), dryRun)
		},
	}

	cmd.Flags().StringVar(&songsPath, "songs", "", "Path to songs.json")
	cmd.Flags().StringVar(&entriesPath, "entries", "", "Path to entries.json")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Where to write word_counts.csv")
	cmd.Flags().StringVar(&policy, "policy", "whole", "Word count for entries without Thoughts: whole or zero")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changed counts without writing")

	return cmd
}

func executeWordcount(songsPath, entriesPath, csvPath string, policy wordcount.Policy, dryRun bool) error {
	songs, kept, _, err := dataset.ReadSongsForRewrite(songsPath)
	if err != nil {
		return fmt.Errorf("failed to read songs: %w", err)
	}
	entries, _, err := dataset.ReadEntries(entriesPath)
	if err != nil {
		return fmt.Errorf("failed to read entries: %w", err)
	}

	changed := recount(songs, entries, policy)
	fmt.Printf("Recounted %d songs, %d changed\n", len(songs), changed)
	if dryRun {
		return nil
	}

	if changed > 0 {
		if err := dataset.WriteSongs(songsPath, songs, dataset.WriteOptions{Backup: true}, kept...); err != nil {
			return fmt.Errorf("failed to write songs: %w", err)
		}
	}
	if err := dataset.WriteWordCounts(csvPath, stats.WordCountRows(songs)); err != nil {
		return fmt.Errorf("failed to write word counts: %w", err)
	}
	slog.Info("Wrote word counts", "path", csvPath)
	return nil
}

// recount sets WordCount on every song from its linked entry and returns
// how many counts changed. Songs without an entry count zero.
func recount(songs []models.Song, entries []models.Entry, policy wordcount.Policy) int {
	idx := linker.Link(songs, entries)
	changed := 0
	for i := range songs {
		s := &songs[i]
		n := 0
		if e, ok := idx.EntryFor(*s); ok {
			n = wordcount.CountWith(e.TextBody, policy)
		} else {
			slog.Warn("No entry for song", "number", s.Number, "song", s.Song)
		}
		if n != s.WordCount {
			slog.Debug("Word count changed", "number", s.Number, "old", s.WordCount, "new", n)
			s.WordCount = n
			changed++
		}
	}
	return changed
}
