// Package extraction asks an LLM to recover the header of an archive entry
// when the structured parser gives up on it.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fussin-and-lovin/archiver/internal/gemini"
	"github.com/fussin-and-lovin/archiver/internal/ingest"
	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/ollama"
	"github.com/fussin-and-lovin/archiver/internal/openai"
	"github.com/fussin-and-lovin/archiver/internal/providers"
)

// maxPromptText bounds how much of a block is sent; the header is at the top
const maxPromptText = 4000

// Service extracts entry headers with a configured provider
type Service struct {
	provider providers.Provider
	model    string
}

// NewProvider returns the named provider. An empty name uses
// ARCHIVER_PROVIDER, then ollama.
func NewProvider(name string) (providers.Provider, string, error) {
	if name == "" {
		name = os.Getenv("ARCHIVER_PROVIDER")
		if name == "" {
			name = "ollama"
		}
	}

	switch name {
	case "ollama":
		return ollama.New(), name, nil
	case "openai":
		return openai.New(), name, nil
	case "gemini":
		return gemini.New(), name, nil
	default:
		return nil, "", fmt.Errorf("unsupported provider: %s", name)
	}
}

// NewService builds a service for the named provider and model.
func NewService(provider, model string) (*Service, error) {
	p, name, err := NewProvider(provider)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = providers.DefaultModel(name)
	}
	return &Service{provider: p, model: model}, nil
}

// NewServiceWith wraps an already constructed provider.
func NewServiceWith(p providers.Provider, model string) *Service {
	return &Service{provider: p, model: model}
}

// ExtractEntry implements ingest.Extractor.
func (s *Service) ExtractEntry(ctx context.Context, b ingest.Block) (ingest.Parsed, error) {
	text := ingest.CleanText(b.Text)
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}

	raw, err := s.provider.Complete(ctx, providers.Request{
		Model:       s.model,
		Temperature: 0.1,
		Prompt:      buildPrompt(text),
	})
	if err != nil {
		return ingest.Parsed{}, fmt.Errorf("failed to call provider: %w", err)
	}

	p, err := parseResponse(raw)
	if err != nil {
		return ingest.Parsed{}, err
	}
	if b.Number > 0 && p.Entry.Number != b.Number {
		return ingest.Parsed{}, fmt.Errorf("%w: provider says #%d, source says #%d", ingest.ErrMalformed, p.Entry.Number, b.Number)
	}
	p.Entry.TextBody = ingest.CleanText(b.Text)

	slog.Debug("Extracted entry header", "number", p.Entry.Number, "song", p.Entry.Song, "artist", p.Entry.Artist)
	return p, nil
}

func buildPrompt(text string) string {
	return fmt.Sprintf(`You are reading one post from a song-of-the-day email archive. Each post names one song.

Find the post's entry number, the song title, the performing artist and the album.

OUTPUT FORMAT:
Respond with ONLY one line in the form

number|title|artist|album

Use an empty field when a value is not present. Do not add quotes, labels or any other text.

POST:
%s`, text)
}

// parseResponse reads the first line shaped like number|title|artist|album.
// Code fences and blank lines around it are ignored.
func parseResponse(response string) (ingest.Parsed, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```text")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	for _, line := range strings.Split(response, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "|")
		if len(fields) != 4 {
			continue
		}
		for i := range fields {
			fields[i] = strings.Trim(strings.TrimSpace(fields[i]), `"`)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(fields[0], "#"))
		if err != nil || n <= 0 || fields[1] == "" {
			continue
		}
		return ingest.Parsed{
			Entry: models.Entry{Number: n, Song: fields[1], Artist: fields[2]},
			Album: fields[3],
		}, nil
	}

	slog.Warn("Provider response had no usable header line", "response", response)
	return ingest.Parsed{}, fmt.Errorf("%w: no header line in provider response", ingest.ErrMalformed)
}
