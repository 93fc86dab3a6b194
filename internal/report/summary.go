package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/franz/sparkify-etl/internal/store"
)

// BatchSummary describes one batch run (songs or logs)
type BatchSummary struct {
	Name           string
	Root           string
	FilesFound     int
	FilesProcessed int
	TotalBytes     int64
	Rows           map[string]int // rows upserted per table
	Skipped        int            // input rows dropped by filtering
	LookupMisses   int
	Errors         []string
	Duration       time.Duration
}

// Summary represents the report of one load run
type Summary struct {
	GeneratedAt  time.Time
	Database     string
	Backend      string
	EventLogPath string
	Batches      []BatchSummary
	Tables       []store.TableCount
}

// WriteMarkdownReport writes the summary as Markdown to outputPath
func WriteMarkdownReport(report *Summary, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(RenderMarkdown(report)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// RenderMarkdown renders the summary as a Markdown document
func RenderMarkdown(report *Summary) string {
	var md strings.Builder

	md.WriteString("# Sparkify Load - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	if report.Database != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s` (%s)\n\n", report.Database, report.Backend))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}
	md.WriteString("---\n\n")

	for _, b := range report.Batches {
		md.WriteString(fmt.Sprintf("## Batch: %s\n\n", b.Name))
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Root | `%s` |\n", b.Root))
		md.WriteString(fmt.Sprintf("| Files | %d/%d processed |\n", b.FilesProcessed, b.FilesFound))
		md.WriteString(fmt.Sprintf("| Input Size | %s |\n", humanize.Bytes(uint64(b.TotalBytes))))
		md.WriteString(fmt.Sprintf("| Rows Skipped | %s |\n", humanize.Comma(int64(b.Skipped))))
		if b.Name == "logs" {
			md.WriteString(fmt.Sprintf("| Lookup Misses | %s |\n", humanize.Comma(int64(b.LookupMisses))))
		}
		md.WriteString(fmt.Sprintf("| Duration | %s |\n", b.Duration.Round(time.Millisecond)))
		md.WriteString("\n")

		if len(b.Rows) > 0 {
			tables := make([]string, 0, len(b.Rows))
			for table := range b.Rows {
				tables = append(tables, table)
			}
			sort.Strings(tables)

			md.WriteString("| Table | Rows Upserted |\n")
			md.WriteString("|-------|---------------|\n")
			for _, table := range tables {
				md.WriteString(fmt.Sprintf("| %s | %s |\n", table, humanize.Comma(int64(b.Rows[table]))))
			}
			md.WriteString("\n")
		}

		if len(b.Errors) > 0 {
			md.WriteString("### Errors\n\n")
			for _, e := range b.Errors {
				md.WriteString(fmt.Sprintf("- `%s`\n", e))
			}
			md.WriteString("\n")
		}
	}

	if len(report.Tables) > 0 {
		md.WriteString("## Store\n\n")
		md.WriteString("| Table | Rows |\n")
		md.WriteString("|-------|------|\n")
		for _, t := range report.Tables {
			md.WriteString(fmt.Sprintf("| %s | %s |\n", t.Table, humanize.Comma(t.Rows)))
		}
		md.WriteString("\n")
	}

	return md.String()
}
