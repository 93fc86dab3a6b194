package etl

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/franz/sparkify-etl/internal/report"
	"github.com/franz/sparkify-etl/internal/scan"
	"github.com/franz/sparkify-etl/internal/store"
	"github.com/franz/sparkify-etl/internal/util"
)

// Processor turns one input file into upserts inside the file's transaction
type Processor interface {
	Name() string
	Process(ctx context.Context, tx *store.Tx, path string) (*FileStats, error)
}

// FileStats counts what a processor did with one file
type FileStats struct {
	Rows         map[string]int // rows upserted per table
	Skipped      int            // input rows dropped by filtering
	LookupMisses int
}

func newFileStats() *FileStats {
	return &FileStats{Rows: make(map[string]int)}
}

func (s *FileStats) add(other *FileStats) {
	if other == nil {
		return
	}
	if s.Rows == nil {
		s.Rows = make(map[string]int)
	}
	for table, n := range other.Rows {
		s.Rows[table] += n
	}
	s.Skipped += other.Skipped
	s.LookupMisses += other.LookupMisses
}

// Driver runs a processor over every file of a dataset, one transaction per file
type Driver struct {
	store           *store.Store
	locator         *scan.Locator
	logger          *report.EventLogger
	progress        Progress
	continueOnError bool
}

// Config holds driver configuration
type Config struct {
	Store    *store.Store
	Locator  *scan.Locator // nil = .json files
	Logger   *report.EventLogger
	Progress Progress // nil = text lines on stdout

	// ContinueOnError records a failed file and moves on instead of
	// halting the batch. The failed file's transaction is always rolled back.
	ContinueOnError bool
}

// NewDriver creates a new Driver
func NewDriver(cfg *Config) *Driver {
	if cfg.Locator == nil {
		cfg.Locator = scan.New(nil)
	}
	if cfg.Progress == nil {
		cfg.Progress = NewTextProgress(os.Stdout)
	}

	return &Driver{
		store:           cfg.Store,
		locator:         cfg.Locator,
		logger:          cfg.Logger,
		progress:        cfg.Progress,
		continueOnError: cfg.ContinueOnError,
	}
}

// Result represents the outcome of one batch
type Result struct {
	Batch          string
	Root           string
	FilesFound     int
	FilesProcessed int
	TotalBytes     int64
	Stats          FileStats // aggregated over committed files
	Errors         []error
	Duration       time.Duration
}

// Run locates the files under root and processes them in order. Each file
// is committed before the next one starts, so a failure leaves earlier
// files in place. The returned Result is non-nil whenever files were located.
func (d *Driver) Run(ctx context.Context, root string, p Processor) (*Result, error) {
	start := time.Now()

	located, err := d.locator.Find(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to locate %s files: %w", p.Name(), err)
	}

	total := located.Count()
	result := &Result{
		Batch:      p.Name(),
		Root:       located.Root,
		FilesFound: total,
		TotalBytes: located.TotalBytes,
		Stats:      FileStats{Rows: make(map[string]int)},
	}
	defer func() {
		result.Duration = time.Since(start)
	}()

	d.progress.Found(located.Root, total)
	d.logger.LogLocate(p.Name(), located.Root, total, located.TotalBytes)
	defer d.progress.Finish()

	for i, path := range located.Files {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%s batch interrupted after %d/%d files: %w", p.Name(), i, total, err)
		}

		fileStart := time.Now()
		var stats *FileStats
		err := d.store.Transaction(ctx, func(tx *store.Tx) error {
			var err error
			stats, err = p.Process(ctx, tx, path)
			return err
		})
		if err != nil {
			err = fmt.Errorf("%s: %w", path, err)
			result.Errors = append(result.Errors, err)
			d.logger.LogError(p.Name(), path, err)

			if !d.continueOnError {
				return result, err
			}
			util.WarnLog("Skipping %s: %v", path, err)
			d.progress.Advance(i+1, total)
			continue
		}

		result.FilesProcessed++
		result.Stats.add(stats)
		if stats != nil {
			d.logger.LogLoad(p.Name(), path, stats.Rows, time.Since(fileStart))
		}
		util.DebugLog("Committed %s", path)

		d.progress.Advance(i+1, total)
	}

	return result, nil
}

// Progress receives batch progress from the driver
type Progress interface {
	Found(root string, total int)
	Advance(done, total int)
	Finish()
}

// TextProgress writes one line per event
type TextProgress struct {
	w io.Writer
}

// NewTextProgress creates a TextProgress writing to w
func NewTextProgress(w io.Writer) *TextProgress {
	return &TextProgress{w: w}
}

func (p *TextProgress) Found(root string, total int) {
	fmt.Fprintf(p.w, "%d files found in %s\n", total, root)
}

func (p *TextProgress) Advance(done, total int) {
	fmt.Fprintf(p.w, "%d/%d files processed.\n", done, total)
}

func (p *TextProgress) Finish() {}
