package archivecmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/extraction"
	"github.com/fussin-and-lovin/archiver/internal/ingest"
)

type ingestOptions struct {
	inputs   []string
	entries  string
	songsOut string
	provider string
	model    string
	useLLM   bool
}

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Parse archived emails or a PDF text dump into entries.json",
		Long: `Split mailbox exports (.mbox) or PDF text dumps (any other extension) into
entry blocks, parse the "Song #N" header of each block and write the entries.

Blocks the parser cannot read are reported. With --llm they are sent to an
LLM provider (ollama, openai or gemini) that recovers the header instead.`,
		Example: `  # Parse a mailbox export
  archiver ingest archive.mbox --entries data/entries.json

  # Also emit skeleton song records and use Ollama for unreadable blocks
  archiver ingest archive.mbox dump.txt --songs-out data/songs.json --llm --provider ollama`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			opts.inputs = args
			opts.entries = pick(opts.entries, cfg.Entries)
			return executeIngest(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.entries, "entries", "", "Where to write entries.json")
	cmd.Flags().StringVar(&opts.songsOut, "songs-out", "", "Also write skeleton song records here")
	cmd.Flags().BoolVar(&opts.useLLM, "llm", false, "Recover unreadable blocks with an LLM")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "LLM provider: ollama, openai or gemini (default $ARCHIVER_PROVIDER or ollama)")
	cmd.Flags().StringVar(&opts.model, "model", "", "LLM model (default depends on provider)")

	return cmd
}

func executeIngest(ctx context.Context, opts ingestOptions) error {
	var blocks []ingest.Block
	for _, path := range opts.inputs {
		b, err := readBlocks(path)
		if err != nil {
			return err
		}
		slog.Info("Read blocks", "path", path, "blocks", len(b))
		blocks = append(blocks, b...)
	}

	var fallback ingest.Extractor
	if opts.useLLM || opts.provider != "" {
		svc, err := extraction.NewService(opts.provider, opts.model)
		if err != nil {
			return fmt.Errorf("failed to create extraction service: %w", err)
		}
		fallback = svc
	}

	records, issues, err := ingest.Run(ctx, blocks, fallback)
	if err != nil {
		return err
	}
	records = ingest.Dedupe(records)

	for _, issue := range issues {
		slog.Warn("Unreadable block", "kind", issue.Kind, "message", issue.Message)
	}

	if err := dataset.WriteEntries(opts.entries, ingest.Entries(records), dataset.WriteOptions{Backup: true}); err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}
	if opts.songsOut != "" {
		if err := dataset.WriteSongs(opts.songsOut, ingest.Songs(records), dataset.WriteOptions{Backup: true}); err != nil {
			return fmt.Errorf("failed to write songs: %w", err)
		}
	}

	fmt.Printf("Ingested %d entries from %d blocks (%d unreadable)\n", len(records), len(blocks), len(issues))
	return nil
}

// readBlocks splits a file by its kind: .mbox files are mailboxes, the
// rest are text dumps.
func readBlocks(path string) ([]ingest.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var split func(io.Reader) ([]ingest.Block, error) = ingest.SplitText
	if strings.EqualFold(filepath.Ext(path), ".mbox") {
		split = ingest.SplitMbox
	}

	blocks, err := split(f)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", path, err)
	}
	for i := range blocks {
		blocks[i].Source = filepath.Base(path) + " " + blocks[i].Source
	}
	return blocks, nil
}
