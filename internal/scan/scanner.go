package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/franz/sparkify-etl/internal/util"
)

// DefaultExtensions are the dataset file extensions located by default
var DefaultExtensions = []string{".json"}

// Locator discovers dataset files in a directory tree
type Locator struct {
	extensions map[string]bool
}

// Config holds locator configuration
type Config struct {
	Extensions []string
}

// New creates a new Locator. A nil config or empty extension list selects
// DefaultExtensions.
func New(cfg *Config) *Locator {
	exts := DefaultExtensions
	if cfg != nil && len(cfg.Extensions) > 0 {
		exts = cfg.Extensions
	}

	// Build extension map (case-insensitive)
	extMap := make(map[string]bool)
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[ext] = true
	}

	return &Locator{extensions: extMap}
}

// Result is the ordered list of files found under one root
type Result struct {
	Root       string
	Files      []string // absolute paths, lexically sorted
	TotalBytes int64
}

// Count returns the number of files found
func (r *Result) Count() int {
	return len(r.Files)
}

// Find walks root recursively and returns every file with a matching
// extension. An empty result is not an error.
func (l *Locator) Find(ctx context.Context, root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	info, err := os.Stat(absRoot)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("dataset root %s: %w", root, util.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset root %s is not a directory: %w", root, util.ErrNotFound)
	}

	result := &Result{Root: absRoot}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		// Check for cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return fmt.Errorf("access error: %s: %w", path, err)
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		if !l.matches(path) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		result.Files = append(result.Files, path)
		result.TotalBytes += fi.Size()
		util.DebugLog("Found: %s", path)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk error: %w", walkErr)
	}

	// WalkDir is lexical per directory; sort the flat list so the order
	// does not depend on directory nesting
	sort.Strings(result.Files)

	return result, nil
}

// matches checks if a file has one of the configured extensions
func (l *Locator) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return l.extensions[ext]
}

// Extensions returns the configured extensions in sorted order
func (l *Locator) Extensions() []string {
	exts := make([]string, 0, len(l.extensions))
	for ext := range l.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
