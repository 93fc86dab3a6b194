package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franz/sparkify-etl/internal/scan"
	"github.com/franz/sparkify-etl/internal/store"
	"github.com/franz/sparkify-etl/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure a load can run.

This command checks:
- Database connectivity and schema version
- Song and event-log dataset roots
- Event log directory write access
- Free disk space next to a SQLite database`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	util.InfoLog("=== Sparkify Doctor - System Diagnostics ===")
	util.InfoLog("")

	dsn := GetConfigString("db", defaultDB)
	locator := scan.New(&scan.Config{Extensions: GetConfigStringSlice("ext")})

	results := []checkResult{
		checkDatabase(ctx, dsn),
		checkDataset(ctx, locator, "Song data", GetConfigString("song-data", "data/song_data")),
		checkDataset(ctx, locator, "Log data", GetConfigString("log-data", "data/log_data")),
		checkWritableDirectory("Event log directory", GetConfigString("event-dir", "artifacts")),
	}
	if dialect, err := store.DetectDialect(dsn); err == nil && dialect == store.DialectSQLite {
		results = append(results, checkDiskSpace(filepath.Dir(dsn), "database"))
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Resolve them before running a load.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed, ready to load.")
	}

	return nil
}

// checkDatabase opens the store once, which also applies the schema
func checkDatabase(ctx context.Context, dsn string) checkResult {
	if dsn == "" {
		return checkResult{
			name:    "Database",
			error:   true,
			message: "no database specified (use --db flag or config)",
		}
	}

	db, err := store.Open(ctx, dsn)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: err.Error(),
		}
	}
	defer db.Close()

	version, err := db.ServerVersion(ctx)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot query server version: %v", err),
		}
	}
	schema, err := db.SchemaVersion(ctx)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: err.Error(),
		}
	}

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s %s, schema v%d)", store.RedactDSN(dsn), db.Dialect(), version, schema),
	}
}

// checkDataset verifies a dataset root exists and counts its files
func checkDataset(ctx context.Context, locator *scan.Locator, name, root string) checkResult {
	result, err := locator.Find(ctx, root)
	if err != nil {
		return checkResult{
			name:    name,
			error:   true,
			message: err.Error(),
		}
	}

	if result.Count() == 0 {
		return checkResult{
			name:    name,
			warning: true,
			message: fmt.Sprintf("%s (no %v files)", result.Root, locator.Extensions()),
		}
	}

	return checkResult{
		name:    name,
		message: fmt.Sprintf("%s (%d files, %s)", result.Root, result.Count(), humanize.Bytes(uint64(result.TotalBytes))),
	}
}

// checkWritableDirectory verifies a directory is writable, creating it if needed
func checkWritableDirectory(name, path string) checkResult {
	if err := os.MkdirAll(path, 0755); err != nil {
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("cannot create %s: %v", path, err),
		}
	}

	// Check write permission by creating a temp file
	f, err := os.CreateTemp(path, ".sparkify_write_test")
	if err != nil {
		return checkResult{
			name:    name,
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(f.Name())

	return checkResult{
		name:    name,
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))
	usedPercent := float64(usedBytes) / float64(totalBytes) * 100

	// The full dataset loads into well under 1 GB
	warning := false
	warningMsg := ""
	if availBytes < 1<<30 {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 95 {
		warning = true
		warningMsg = " (>95% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%s available%s", humanize.IBytes(availBytes), warningMsg),
	}
}
