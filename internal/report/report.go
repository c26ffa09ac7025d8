// Package report summarises a run as a terminal table and a JSON file.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"github.com/olekukonko/tablewriter"

	"github.com/pspoerri/rasterprefetch/internal/prefetch"
)

// Report describes one run.
type Report struct {
	RunID     string            `json:"run_id"`
	StartedAt time.Time         `json:"started_at"`
	Input     string            `json:"input"`
	Output    string            `json:"output"`
	Settings  map[string]string `json:"settings"`

	Regions     int     `json:"regions"`
	WallSeconds float64 `json:"wall_seconds"`
	OutputBytes int64   `json:"output_bytes"`

	Metrics       prefetch.Metrics `json:"metrics"`
	PercentGood   float64          `json:"percent_good"`
	PercentMissed float64          `json:"percent_missed"`
	PercentExtra  float64          `json:"percent_extra"`

	TileCacheHits   uint64 `json:"tile_cache_hits"`
	TileCacheMisses uint64 `json:"tile_cache_misses"`
}

// New starts a report with a fresh run id.
func New(input, output string) *Report {
	return &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Input:     input,
		Output:    output,
		Settings:  make(map[string]string),
	}
}

// Finish records the final metrics and the wall time since StartedAt.
func (r *Report) Finish(m prefetch.Metrics, regions int) {
	r.Metrics = m
	r.Regions = regions
	r.PercentGood = m.PercentGood()
	r.PercentMissed = m.PercentMissed()
	r.PercentExtra = m.PercentExtra()
	r.WallSeconds = time.Since(r.StartedAt).Seconds()
}

// PrintTable writes the prediction metrics as a table.
func (r *Report) PrintTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Pixels", "Percent"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	m := r.Metrics
	table.Append([]string{"processed", fmt.Sprint(m.ProcessedPixels), "100.0%"})
	table.Append([]string{"good guesses", fmt.Sprint(m.GoodGuesses), fmt.Sprintf("%.1f%%", r.PercentGood)})
	table.Append([]string{"missed guesses", fmt.Sprint(m.MissedGuesses), fmt.Sprintf("%.1f%%", r.PercentMissed)})
	table.Append([]string{"extra guesses", fmt.Sprint(m.ExtraGuesses), fmt.Sprintf("%.1f%%", r.PercentExtra)})
	table.Render()
}

// PrintPairs writes key/value pairs as an aligned two-column list.
func PrintPairs(w io.Writer, pairs [][2]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(":")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	for _, p := range pairs {
		table.Append([]string{p[0], p[1]})
	}
	table.Render()
}

// WriteJSON writes r to path atomically.
func WriteJSON(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
