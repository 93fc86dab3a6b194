package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/sparkify-etl/internal/etl"
	"github.com/franz/sparkify-etl/internal/extract"
	"github.com/franz/sparkify-etl/internal/report"
	"github.com/franz/sparkify-etl/internal/scan"
	"github.com/franz/sparkify-etl/internal/store"
	"github.com/franz/sparkify-etl/internal/util"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the song and event-log datasets",
	Long: `Load the song-metadata dataset, then the event-log dataset.

The songs batch fills the songs and artists tables. The logs batch fills
time, users and songplays, resolving each play to a song by exact
(title, artist name, duration) match against what is already loaded.

Each file is committed on its own. By default the first failing file stops
the run; files committed before it stay loaded.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().String("song-data", "data/song_data", "song-metadata dataset root")
	loadCmd.Flags().String("log-data", "data/log_data", "event-log dataset root")
	loadCmd.Flags().StringSlice("ext", scan.DefaultExtensions, "dataset file extensions")
	loadCmd.Flags().String("play-marker", extract.DefaultPlayMarker, "page value of a song-play event")
	loadCmd.Flags().String("songplay-key", string(extract.KeyHash), "songplay_id strategy: hash or row")
	loadCmd.Flags().Bool("require-match", false, "skip songplays whose song cannot be resolved")
	loadCmd.Flags().Bool("continue-on-error", false, "keep loading after a file fails")
	loadCmd.Flags().String("only", "", "run a single batch: songs or logs")
	loadCmd.Flags().String("report", "", "write a Markdown summary to this path")

	viper.BindPFlag("song-data", loadCmd.Flags().Lookup("song-data"))
	viper.BindPFlag("log-data", loadCmd.Flags().Lookup("log-data"))
	viper.BindPFlag("ext", loadCmd.Flags().Lookup("ext"))
	viper.BindPFlag("play-marker", loadCmd.Flags().Lookup("play-marker"))
	viper.BindPFlag("songplay-key", loadCmd.Flags().Lookup("songplay-key"))
	viper.BindPFlag("require-match", loadCmd.Flags().Lookup("require-match"))
	viper.BindPFlag("continue-on-error", loadCmd.Flags().Lookup("continue-on-error"))
	viper.BindPFlag("only", loadCmd.Flags().Lookup("only"))
	viper.BindPFlag("report", loadCmd.Flags().Lookup("report"))
}

// batch pairs a dataset root with the processor that loads it
type batch struct {
	root      string
	processor etl.Processor
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	keys, err := extract.ParseKeyStrategy(viper.GetString("songplay-key"))
	if err != nil {
		return err
	}

	only := viper.GetString("only")
	if only != "" && only != "songs" && only != "logs" {
		return invalidConfig("--only must be songs or logs, got %q", only)
	}

	db, dsn, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := openEventLogger()
	defer logger.Close()

	batches := []batch{
		{
			root:      GetConfigString("song-data", "data/song_data"),
			processor: &etl.SongProcessor{Logger: logger},
		},
		{
			root: GetConfigString("log-data", "data/log_data"),
			processor: &etl.LogProcessor{
				KeyStrategy:  keys,
				PlayMarker:   GetConfigString("play-marker", extract.DefaultPlayMarker),
				RequireMatch: GetConfigBool("require-match"),
				Logger:       logger,
			},
		},
	}

	// Progress lines go to stdout; a bar replaces the per-file lines on a terminal
	var progress etl.Progress = etl.NewTextProgress(os.Stdout)
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		progress = etl.NewBarProgress(os.Stdout)
	}

	driver := etl.NewDriver(&etl.Config{
		Store:           db,
		Locator:         scan.New(&scan.Config{Extensions: GetConfigStringSlice("ext")}),
		Logger:          logger,
		Progress:        progress,
		ContinueOnError: GetConfigBool("continue-on-error"),
	})

	summary := &report.Summary{
		GeneratedAt:  time.Now(),
		Database:     store.RedactDSN(dsn),
		Backend:      string(db.Dialect()),
		EventLogPath: logger.Path(),
	}

	var runErr error
	failedFiles := 0
	for _, b := range batches {
		if only != "" && only != b.processor.Name() {
			continue
		}

		util.InfoLog("=== Batch: %s ===", b.processor.Name())
		util.InfoLog("Root: %s", b.root)

		result, err := driver.Run(ctx, b.root, b.processor)
		if result != nil {
			logBatch(result)
			summary.Batches = append(summary.Batches, batchSummary(result))
			failedFiles += len(result.Errors)
		}
		if err != nil {
			runErr = fmt.Errorf("%s batch failed: %w", b.processor.Name(), err)
			break
		}
	}

	if counts, err := db.TableCounts(ctx); err == nil {
		summary.Tables = counts
		logTables(counts)
	} else {
		util.WarnLog("Failed to count rows: %v", err)
	}

	if path := GetConfigString("report", ""); path != "" {
		if err := report.WriteMarkdownReport(summary, filepath.Clean(path)); err != nil {
			util.WarnLog("Failed to write report: %v", err)
		} else {
			util.InfoLog("Report: %s", path)
		}
	}

	if runErr != nil {
		return runErr
	}
	if failedFiles > 0 {
		return fmt.Errorf("%d file(s) failed to load, see %s", failedFiles, eventLogHint(logger))
	}

	util.SuccessLog("Load complete")
	return nil
}

func logBatch(result *etl.Result) {
	util.SuccessLog("%s: %d/%d files loaded in %v (%s)",
		result.Batch, result.FilesProcessed, result.FilesFound,
		result.Duration.Round(time.Millisecond), humanize.Bytes(uint64(result.TotalBytes)))
	for _, table := range store.Tables {
		if n, ok := result.Stats.Rows[table]; ok {
			util.InfoLog("  %s: %s rows upserted", table, humanize.Comma(int64(n)))
		}
	}
	if result.Stats.Skipped > 0 {
		util.InfoLog("  Rows skipped: %s", humanize.Comma(int64(result.Stats.Skipped)))
	}
	if result.Batch == "logs" {
		util.InfoLog("  Lookup misses: %s", humanize.Comma(int64(result.Stats.LookupMisses)))
	}
	if len(result.Errors) > 0 {
		util.WarnLog("  Errors: %d", len(result.Errors))
	}
}

func batchSummary(result *etl.Result) report.BatchSummary {
	errs := make([]string, 0, len(result.Errors))
	for _, err := range result.Errors {
		errs = append(errs, err.Error())
	}

	return report.BatchSummary{
		Name:           result.Batch,
		Root:           result.Root,
		FilesFound:     result.FilesFound,
		FilesProcessed: result.FilesProcessed,
		TotalBytes:     result.TotalBytes,
		Rows:           result.Stats.Rows,
		Skipped:        result.Stats.Skipped,
		LookupMisses:   result.Stats.LookupMisses,
		Errors:         errs,
		Duration:       result.Duration,
	}
}

func logTables(counts []store.TableCount) {
	util.InfoLog("")
	util.InfoLog("Current database status:")
	for _, c := range counts {
		util.InfoLog("  %-10s %s", c.Table, humanize.Comma(c.Rows))
	}
}

func eventLogHint(logger *report.EventLogger) string {
	if logger.Path() == "" {
		return "the log above"
	}
	return logger.Path()
}
