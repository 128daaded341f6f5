package archivecmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/assemble"
	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/images"
	"github.com/fussin-and-lovin/archiver/internal/linker"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/textnorm"
	"github.com/fussin-and-lovin/archiver/internal/wikipedia"
)

// NewEnrichCmd creates the enrich command
func NewEnrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Look up extra song data on Wikipedia",
	}
	cmd.AddCommand(newEnrichGenresCmd())
	cmd.AddCommand(newEnrichRelatedCmd())
	return cmd
}

func newEnrichGenresCmd() *cobra.Command {
	var entriesPath, genresPath, apiURL string
	var workers int
	var refresh bool

	cmd := &cobra.Command{
		Use:   "genres",
		Short: "Fetch raw genres from each entry's album or artist page",
		Long: `Read the infobox "genre" field of the Wikipedia page linked from each entry,
trying the album page before the artist page. Results are merged into the
genre JSON keyed by entry number; entries already present are skipped unless
--refresh is set. Run "archiver assemble" afterwards to standardize and merge
them into songs.json.`,
		Example: `  archiver enrich genres --workers 4
  archiver enrich genres --refresh --genres /tmp/genres.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			return executeEnrichGenres(cmd.Context(), pick(entriesPath, cfg.Entries), pick(genresPath, cfg.Genres), apiURL, workers, refresh)
		},
	}

	cmd.Flags().StringVar(&entriesPath, "entries", "", "Path to entries.json")
	cmd.Flags().StringVar(&genresPath, "genres", "", "Genre JSON to update")
	cmd.Flags().StringVar(&apiURL, "api", "", "MediaWiki API URL (default $WIKIPEDIA_API or English Wikipedia)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 2, "Concurrent lookups")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Look up entries that already have genres")

	return cmd
}

func executeEnrichGenres(ctx context.Context, entriesPath, genresPath, apiURL string, workers int, refresh bool) error {
	entries, _, err := dataset.ReadEntries(entriesPath)
	if err != nil {
		return fmt.Errorf("failed to read entries: %w", err)
	}

	existing := map[int][]string{}
	if fileExists(genresPath) && !refresh {
		existing, _, err = dataset.ReadGenres(genresPath)
		if err != nil {
			return fmt.Errorf("failed to read genres: %w", err)
		}
	}

	genres, issues, err := wikipedia.EnrichGenres(ctx, wikipedia.NewClient(apiURL), entries, existing, workers)
	for _, issue := range issues {
		slog.Warn("No genres", "number", issue.Number, "message", issue.Message)
	}
	// partial results are still worth keeping after an interrupt
	if werr := dataset.WriteGenres(genresPath, genres); werr != nil {
		return fmt.Errorf("failed to write genres: %w", werr)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Genres for %d entries (%d new, %d without genres)\n", len(genres), len(genres)-len(existing), len(issues))
	return nil
}

func newEnrichRelatedCmd() *cobra.Command {
	var songsPath, entriesPath, relatedPath string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "related",
		Short: "Find other archive artists mentioned in each write-up",
		Long: `Scan each entry's text for the names, last names and nicknames of other
artists in songs.json and add them to the "other" list of the related-artist
JSON. Album credits already in the file are kept. Run "archiver assemble"
afterwards to merge the lists into songs.json.`,
		Example: `  archiver enrich related
  archiver enrich related --refresh --related /tmp/related.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			return executeEnrichRelated(pick(songsPath, cfg.Songs), pick(entriesPath, cfg.Entries), pick(relatedPath, cfg.Related), refresh)
		},
	}

	cmd.Flags().StringVar(&songsPath, "songs", "", "Path to songs.json")
	cmd.Flags().StringVar(&entriesPath, "entries", "", "Path to entries.json")
	cmd.Flags().StringVar(&relatedPath, "related", "", "Related-artist JSON to update")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Start from an empty file instead of merging")

	return cmd
}

func executeEnrichRelated(songsPath, entriesPath, relatedPath string, refresh bool) error {
	songs, _, err := dataset.ReadSongs(songsPath)
	if err != nil {
		return fmt.Errorf("failed to read songs: %w", err)
	}
	entries, _, err := dataset.ReadEntries(entriesPath)
	if err != nil {
		return fmt.Errorf("failed to read entries: %w", err)
	}

	related := map[int]models.RelatedArtists{}
	if fileExists(relatedPath) && !refresh {
		related, _, err = dataset.ReadRelated(relatedPath)
		if err != nil {
			return fmt.Errorf("failed to read related artists: %w", err)
		}
	}

	artists := make([]string, 0, len(songs))
	for _, s := range songs {
		artists = append(artists, textnorm.CleanArtistName(s.Artist))
	}
	detector := linker.NewMentionDetector(artists)
	idx := linker.Link(songs, entries)

	found := 0
	for _, s := range songs {
		e, ok := idx.EntryFor(s)
		if !ok {
			continue
		}
		mentions := detector.Detect(e.TextBody, textnorm.CleanArtistName(s.Artist))
		if len(mentions) == 0 {
			continue
		}
		slog.Debug("Found mentions", "number", s.Number, "artists", mentions)
		related[s.Number] = assemble.MergeRelated(related[s.Number], models.RelatedArtists{Other: mentions})
		found++
	}

	if err := dataset.WriteRelated(relatedPath, related); err != nil {
		return fmt.Errorf("failed to write related artists: %w", err)
	}
	fmt.Printf("Mentions found in %d of %d songs\n", found, len(songs))
	return nil
}

// NewCoversCmd creates the covers command
func NewCoversCmd() *cobra.Command {
	var songsPath, entriesPath, dir, apiURL string
	var force bool

	cmd := &cobra.Command{
		Use:   "covers",
		Short: "Download album cover art from Wikipedia",
		Long: `Download one cover per distinct album to <dir>/<album slug>.jpg. The image
is picked from the album's Wikipedia page by how cover-like its file name,
shape and size are. Albums that already have a good cover are skipped.`,
		Example: `  archiver covers --dir public/covers`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			f := images.NewFetcher(wikipedia.NewClient(apiURL), pick(dir, cfg.CoversDir))
			f.Force = force
			return executeCovers(cmd.Context(), f, pick(songsPath, cfg.Songs), pick(entriesPath, cfg.Entries))
		},
	}

	cmd.Flags().StringVar(&songsPath, "songs", "", "Path to songs.json")
	cmd.Flags().StringVar(&entriesPath, "entries", "", "Path to entries.json")
	cmd.Flags().StringVar(&dir, "dir", "", "Cover directory")
	cmd.Flags().StringVar(&apiURL, "api", "", "MediaWiki API URL (default $WIKIPEDIA_API or English Wikipedia)")
	cmd.Flags().BoolVar(&force, "force", false, "Download again even when a good cover exists")

	return cmd
}

func executeCovers(ctx context.Context, f *images.Fetcher, songsPath, entriesPath string) error {
	songs, _, err := dataset.ReadSongs(songsPath)
	if err != nil {
		return fmt.Errorf("failed to read songs: %w", err)
	}
	entries, _, err := dataset.ReadEntries(entriesPath)
	if err != nil {
		return fmt.Errorf("failed to read entries: %w", err)
	}

	res, issues, err := f.FetchCovers(ctx, songs, entries)
	for _, issue := range issues {
		slog.Warn("No cover", "number", issue.Number, "message", issue.Message)
	}
	fmt.Printf("%d albums: %d downloaded, %d already present, %d failed\n", res.Albums, res.Downloaded, res.Skipped, res.Failed)
	return err
}
