// Package providers defines the interface shared by the LLM backends used
// to recover entry headers the structured parser cannot read.
package providers

import (
	"context"
	"os"
)

// Request is one completion request
type Request struct {
	Model       string
	Temperature float64
	Prompt      string
	// JSON asks the backend to constrain its output to a JSON object
	JSON bool
}

// Provider completes a prompt
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// DefaultModel returns the model used when none is configured, honoring
// ARCHIVER_MODEL first.
func DefaultModel(provider string) string {
	if m := os.Getenv("ARCHIVER_MODEL"); m != "" {
		return m
	}
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "gemini":
		return "gemini-1.5-flash"
	case "ollama":
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}
