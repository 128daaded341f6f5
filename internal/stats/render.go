package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// Format selects how a report is printed
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// ParseFormat validates a --format flag value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatYAML, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported format %q (supported: table, yaml, json)", s)
	}
}

// Write prints the report in the given format.
func Write(w io.Writer, r Report, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	default:
		_, err := io.WriteString(w, RenderTables(r))
		return err
	}
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// RenderTables lays the report out as a series of terminal tables.
func RenderTables(r Report) string {
	var b strings.Builder
	wc := r.WordCounts

	b.WriteString("Word Count Analysis\n")
	summary := [][]string{
		{"Total entries", strconv.Itoa(wc.Entries)},
		{"Total words", strconv.Itoa(wc.Total)},
		{"Average words per entry", fmt.Sprintf("%.2f", wc.Average)},
		{"Median words per entry", strconv.Itoa(wc.Median)},
		{"Standard deviation", fmt.Sprintf("%.2f", wc.StdDev)},
		{"Entries without words", strconv.Itoa(len(wc.WithoutWords))},
		{"Tragic", fmt.Sprintf("%d (%.1f%%)", r.Tragic, r.TragicPct)},
	}
	if wc.Longest != nil {
		summary = append(summary,
			[]string{"Longest entry", fmt.Sprintf("%d words (%s by %s)", wc.Longest.WordCount, wc.Longest.Song, wc.Longest.Artist)},
			[]string{"Shortest entry", fmt.Sprintf("%d words (%s by %s)", wc.Shortest.WordCount, wc.Shortest.Song, wc.Shortest.Artist)},
		)
	}
	b.WriteString(renderTable([]string{"Metric", "Value"}, summary, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n\nDistribution\n")

	buckets := make([][]string, len(wc.Buckets))
	for i, bk := range wc.Buckets {
		buckets[i] = []string{bk.Label, strconv.Itoa(bk.Count), fmt.Sprintf("%.1f%%", bk.Percentage)}
	}
	b.WriteString(renderTable([]string{"Words", "Entries", "Share"}, buckets, []columnAlignment{alignLeft, alignRight, alignRight}))

	if len(r.Genres) > 0 {
		b.WriteString("\n\nGenres\n")
		b.WriteString(renderTable([]string{"Genre", "Songs"}, countRows(r.Genres), []columnAlignment{alignLeft, alignRight}))
	}
	if len(r.Artists) > 0 {
		b.WriteString("\n\nArtists\n")
		b.WriteString(renderTable([]string{"Artist", "Songs"}, countRows(r.Artists), []columnAlignment{alignLeft, alignRight}))
	}
	if len(r.Graph) > 0 {
		tiers := make([]string, 0, len(r.Graph))
		for t := range r.Graph {
			tiers = append(tiers, t)
		}
		sort.Strings(tiers)
		rows := make([][]string, len(tiers))
		for i, t := range tiers {
			rows[i] = []string{t, strconv.Itoa(r.Graph[t])}
		}
		b.WriteString("\n\nGraph links\n")
		b.WriteString(renderTable([]string{"Tier", "Links"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
	b.WriteString("\n")
	return b.String()
}

func countRows(counts []Count) [][]string {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Name, strconv.Itoa(c.Count)}
	}
	return rows
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
