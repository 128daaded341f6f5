package assemble

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fussin-and-lovin/archiver/internal/dataset"
	"github.com/fussin-and-lovin/archiver/internal/models"
)

// Report is the YAML review file written after an assembly run
type Report struct {
	GeneratedAt string          `yaml:"generated_at"`
	Songs       int             `yaml:"songs"`
	Entries     int             `yaml:"entries"`
	Counts      map[string]int  `yaml:"counts"`
	Issues      []models.Issue  `yaml:"issues"`
	Changes     []models.Change `yaml:"changes"`
}

// NewReport summarizes a result for human review.
func NewReport(res *Result, now time.Time) Report {
	r := Report{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Songs:       len(res.Songs),
		Entries:     len(res.Entries),
		Counts:      make(map[string]int),
		Issues:      res.Issues,
		Changes:     res.Changes,
	}
	for _, issue := range res.Issues {
		r.Counts[string(issue.Kind)]++
	}
	if r.Issues == nil {
		r.Issues = []models.Issue{}
	}
	if r.Changes == nil {
		r.Changes = []models.Change{}
	}
	return r
}

// WriteReport writes the review YAML for a result.
func WriteReport(path string, res *Result) error {
	data, err := yaml.Marshal(NewReport(res, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := dataset.WriteFileAtomic(path, data, dataset.WriteOptions{}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
