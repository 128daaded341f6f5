package archivecmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/assemble"
	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/wordcount"
)

// assembleInputs is everything loadAssembler read, plus the records the
// readers skipped so that rewriting the same files keeps them
type assembleInputs struct {
	assembler   *assemble.Assembler
	issues      []models.Issue
	keptSongs   []json.RawMessage
	keptEntries []json.RawMessage
}

type assembleOptions struct {
	songs      string
	entries    string
	sourceCSV  string
	flags      string
	genres     string
	related    string
	policy     string
	issuesPath string
	dryRun     bool
}

// NewAssembleCmd creates the assemble command
func NewAssembleCmd() *cobra.Command {
	var opts assembleOptions

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Build songs.json and entries.json from raw inputs",
		Long: `Merge song records, entry write-ups, artist flags and genre enrichment into
the canonical songs.json and entries.json.

Songs come from --source-csv when given, otherwise from --songs. Entries come
from --entries when that file exists, otherwise from the source CSV. Flags,
genres and related-artist files are optional. Problems that need a human
(missing joins, entries without "Thoughts:", unreadable records) are logged
and, with --issues, written to a YAML review file.`,
		Example: `  # Rebuild from the current datasets
  archiver assemble

  # Rebuild from the spreadsheet export and keep a review file
  archiver assemble --source-csv data/master.csv --issues data/issues.yaml

  # Count entries without a Thoughts marker as zero words
  archiver assemble --policy zero --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			opts.songs = pick(opts.songs, cfg.Songs)
			opts.entries = pick(opts.entries, cfg.Entries)
			opts.sourceCSV = pick(opts.sourceCSV, cfg.SourceCSV)
			opts.flags = pick(opts.flags, cfg.Flags)
			opts.genres = pick(opts.genres, cfg.Genres)
			opts.related = pick(opts.related, cfg.Related)
			return executeAssemble(opts)
		},
	}

	cmd.Flags().StringVar(&opts.songs, "songs", "", "Path to songs.json")
	cmd.Flags().StringVar(&opts.entries, "entries", "", "Path to entries.json")
	cmd.Flags().StringVar(&opts.sourceCSV, "source-csv", "", "Spreadsheet export to build songs from")
	cmd.Flags().StringVar(&opts.flags, "flags", "", "Artist flag CSV (optional)")
	cmd.Flags().StringVar(&opts.genres, "genres", "", "Genre enrichment JSON (optional)")
	cmd.Flags().StringVar(&opts.related, "related", "", "Related-artist enrichment JSON (optional)")
	cmd.Flags().StringVar(&opts.policy, "policy", "whole", "Word count for entries without Thoughts: whole or zero")
	cmd.Flags().StringVar(&opts.issuesPath, "issues", "", "Write a YAML review file of issues and changes")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Assemble and report without writing the datasets")

	return cmd
}

func executeAssemble(opts assembleOptions) error {
	in, err := loadAssembler(opts)
	if err != nil {
		return err
	}

	res, err := in.assembler.Run()
	if err != nil {
		return fmt.Errorf("failed to assemble: %w", err)
	}
	res.Issues = append(in.issues, res.Issues...)

	for _, issue := range res.Issues {
		slog.Warn("Needs review", "kind", issue.Kind, "number", issue.Number, "message", issue.Message)
	}

	if opts.issuesPath != "" {
		if err := assemble.WriteReport(opts.issuesPath, res); err != nil {
			return err
		}
		slog.Info("Wrote review file", "path", opts.issuesPath)
	}

	if opts.dryRun {
		fmt.Printf("Dry run: %d songs, %d entries, %d issues, %d changes\n", len(res.Songs), len(res.Entries), len(res.Issues), len(res.Changes))
		return nil
	}

	keptSongs, err := appendRaw(in.keptSongs, res.SkippedSongs)
	if err != nil {
		return err
	}
	keptEntries, err := appendRaw(in.keptEntries, res.SkippedEntries)
	if err != nil {
		return err
	}

	if err := dataset.WriteSongs(opts.songs, res.Songs, dataset.WriteOptions{Backup: true}, keptSongs...); err != nil {
		return fmt.Errorf("failed to write songs: %w", err)
	}
	if err := dataset.WriteEntries(opts.entries, res.Entries, dataset.WriteOptions{Backup: true}, keptEntries...); err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}

	fmt.Printf("Assembled %d songs and %d entries (%d issues, %d changes)\n", len(res.Songs), len(res.Entries), len(res.Issues), len(res.Changes))
	return nil
}

// appendRaw adds records the assembler skipped to the raw records the
// readers skipped.
func appendRaw[T any](kept []json.RawMessage, skipped []T) ([]json.RawMessage, error) {
	for _, rec := range skipped {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode skipped record: %w", err)
		}
		kept = append(kept, data)
	}
	return kept, nil
}

// loadAssembler reads every input named in opts. Optional inputs that do
// not exist are skipped.
func loadAssembler(opts assembleOptions) (*assembleInputs, error) {
	a := &assemble.Assembler{Policy: wordcount.ParsePolicy(opts.policy)}
	in := &assembleInputs{assembler: a}
	var issues []models.Issue

	var csvEntries []models.Entry
	if opts.sourceCSV != "" {
		songs, entries, csvIssues, err := dataset.ReadSourceCSV(opts.sourceCSV)
		if err != nil {
			return nil, fmt.Errorf("failed to read source CSV: %w", err)
		}
		a.Songs, csvEntries = songs, entries
		issues = append(issues, csvIssues...)
	} else {
		songs, kept, songIssues, err := dataset.ReadSongsForRewrite(opts.songs)
		if err != nil {
			return nil, fmt.Errorf("failed to read songs: %w", err)
		}
		a.Songs = songs
		in.keptSongs = kept
		issues = append(issues, songIssues...)
	}

	switch {
	case fileExists(opts.entries):
		entries, kept, entryIssues, err := dataset.ReadEntriesForRewrite(opts.entries)
		if err != nil {
			return nil, fmt.Errorf("failed to read entries: %w", err)
		}
		a.Entries = entries
		in.keptEntries = kept
		issues = append(issues, entryIssues...)
	case csvEntries != nil:
		a.Entries = csvEntries
	default:
		return nil, fmt.Errorf("entries file not found: %s", opts.entries)
	}

	if fileExists(opts.flags) {
		flags, err := dataset.ReadFlags(opts.flags)
		if err != nil {
			return nil, fmt.Errorf("failed to read flags: %w", err)
		}
		a.Flags = flags
	} else {
		slog.Debug("No artist flag file, keeping existing flags", "path", opts.flags)
	}

	if fileExists(opts.genres) {
		genres, genreIssues, err := dataset.ReadGenres(opts.genres)
		if err != nil {
			return nil, fmt.Errorf("failed to read genres: %w", err)
		}
		a.Genres = genres
		issues = append(issues, genreIssues...)
	}

	if fileExists(opts.related) {
		related, relatedIssues, err := dataset.ReadRelated(opts.related)
		if err != nil {
			return nil, fmt.Errorf("failed to read related artists: %w", err)
		}
		a.Related = related
		issues = append(issues, relatedIssues...)
	}

	slog.Info("Loaded inputs", "songs", len(a.Songs), "entries", len(a.Entries), "flags", len(a.Flags), "genres", len(a.Genres))
	in.issues = issues
	return in, nil
}
