package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/sparkify-etl/internal/store"
)

func sampleSummary() *Summary {
	return &Summary{
		GeneratedAt:  time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
		Database:     "sparkify.db",
		Backend:      "sqlite",
		EventLogPath: "artifacts/events-20261019-093000.jsonl",
		Batches: []BatchSummary{
			{
				Name:           "songs",
				Root:           "/data/song_data",
				FilesFound:     71,
				FilesProcessed: 71,
				TotalBytes:     17_612,
				Rows:           map[string]int{"songs": 71, "artists": 71},
				Duration:       1500 * time.Millisecond,
			},
			{
				Name:           "logs",
				Root:           "/data/log_data",
				FilesFound:     30,
				FilesProcessed: 12,
				Rows:           map[string]int{"songplays": 6820, "users": 6820, "time": 6820},
				Skipped:        1324,
				LookupMisses:   6819,
				Errors:         []string{"/data/log_data/2018-11-13-events.json:4: malformed input"},
			},
		},
		Tables: []store.TableCount{
			{Table: "songplays", Rows: 6820},
			{Table: "users", Rows: 96},
		},
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleSummary())

	expected := []string{
		"# Sparkify Load - Summary Report",
		"**Generated:** 2026-10-19 09:30:00",
		"**Database:** `sparkify.db` (sqlite)",
		"## Batch: songs",
		"| Files | 71/71 processed |",
		"| Input Size | 18 kB |",
		"| artists | 71 |",
		"## Batch: logs",
		"| Files | 12/30 processed |",
		"| Rows Skipped | 1,324 |",
		"| Lookup Misses | 6,819 |",
		"| songplays | 6,820 |",
		"### Errors",
		"2018-11-13-events.json:4: malformed input",
		"## Store",
		"| users | 96 |",
	}
	for _, want := range expected {
		if !strings.Contains(md, want) {
			t.Errorf("Expected report to contain %q\n%s", want, md)
		}
	}

	if strings.Count(md, "Lookup Misses") != 1 {
		t.Error("Expected lookup misses only for the logs batch")
	}
	// tables are listed in sorted order
	if strings.Index(md, "| artists | 71 |") > strings.Index(md, "| songs | 71 |") {
		t.Error("Expected tables in alphabetical order")
	}
}

func TestWriteMarkdownReport(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "reports", "20261019-093000", "summary.md")

	if err := WriteMarkdownReport(sampleSummary(), outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	if !strings.HasPrefix(string(content), "# Sparkify Load - Summary Report") {
		t.Errorf("Unexpected report header: %q", string(content[:40]))
	}
}
