package archivecmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/wordcount"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var entriesPath, policy string
	var maxChars int
	var missing bool

	cmd := &cobra.Command{
		Use:   "inspect [number...]",
		Short: "Show how an entry's word count is derived",
		Long: `Print every word-count stage for the given entry numbers: the text after
"Thoughts:", the reply cut-off, the cleaned text and the tokens.

With --missing, list entries whose write-up has no "Thoughts:" marker instead.`,
		Example: `  # Trace entry 42
  archiver inspect 42

  # Find entries that need a Thoughts marker added
  archiver inspect --missing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			entriesPath = pick(entriesPath, cfg.Entries)

			entries, _, err := dataset.ReadEntries(entriesPath)
			if err != nil {
				return fmt.Errorf("failed to read entries: %w", err)
			}
			if missing {
				listMissingMarker(os.Stdout, entries)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("give at least one entry number, or --missing")
			}

			byNumber := make(map[int]models.Entry, len(entries))
			for _, e := range entries {
				byNumber[e.Number] = e
			}
			for _, arg := range args {
				n, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
				if err != nil {
					return fmt.Errorf("invalid entry number %q", arg)
				}
				e, ok := byNumber[n]
				if !ok {
					fmt.Printf("No entry #%d in %s\n\n", n, entriesPath)
					continue
				}
				printExtraction(os.Stdout, e, wordcount.ExtractWith(e.TextBody, wordcount.ParsePolicy(policy)), maxChars)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entriesPath, "entries", "", "Path to entries.json")
	cmd.Flags().StringVar(&policy, "policy", "whole", "Word count for entries without Thoughts: whole or zero")
	cmd.Flags().IntVar(&maxChars, "chars", 500, "Characters of each stage to show (0 for all)")
	cmd.Flags().BoolVar(&missing, "missing", false, "List entries without a Thoughts marker")

	return cmd
}

func printExtraction(w io.Writer, e models.Entry, ex wordcount.Extraction, maxChars int) {
	fmt.Fprintf(w, "ENTRY #%d: %q by %s\n", e.Number, e.Song, e.Artist)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Marker found:   %v\n", ex.MarkerFound)
	fmt.Fprintf(w, "Reply cut:      %v\n", ex.Truncated)
	fmt.Fprintf(w, "Word count:     %d\n", ex.Count())
	fmt.Fprintln(w)

	stages := []struct {
		name string
		text string
	}{
		{"THOUGHTS", ex.Thoughts},
		{"BODY", ex.Body},
		{"CLEANED", ex.Cleaned},
	}
	for _, st := range stages {
		fmt.Fprintf(w, "%s (%d characters)\n", st.name, len(st.text))
		fmt.Fprintln(w, strings.Repeat("-", 80))
		fmt.Fprintln(w, preview(st.text, maxChars))
		fmt.Fprintln(w)
	}
}

func preview(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	return s[:maxChars] + fmt.Sprintf("\n[... truncated, showing first %d of %d characters ...]", maxChars, len(s))
}

func listMissingMarker(w io.Writer, entries []models.Entry) {
	count := 0
	for _, e := range entries {
		if strings.TrimSpace(e.TextBody) == "" {
			continue
		}
		if _, found := wordcount.LocateThoughts(e.TextBody); !found {
			fmt.Fprintf(w, "#%d\t%s\t%s\n", e.Number, e.Song, e.Artist)
			count++
		}
	}
	fmt.Fprintf(w, "%d entries without %q\n", count, wordcount.ThoughtsMarker)
}
