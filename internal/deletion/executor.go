// Package deletion removes the dupes selected by a deduplication pass.
//
// Deletion is sequential and has no rollback: each file is removed on its
// own, failures are collected, and the batch carries on. Cancellation is
// honored between files.
package deletion

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/steveyegge/maildedup/internal/deduplication"
)

// Failure records a dupe that could not be deleted
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Report is the outcome of a deletion batch
type Report struct {
	Deleted []string
	Failed  []Failure
	Refused []string // dupes that were also kept paths and so were left alone
}

// ExecutorConfig holds deletion configuration
type ExecutorConfig struct {
	Fs   afero.Fs  // Required
	Rate float64   // Deletions per second; 0 means unlimited
	Out  io.Writer // Per-file progress; defaults to io.Discard
}

// Executor deletes dupes one file at a time
type Executor struct {
	fs      afero.Fs
	limiter *rate.Limiter
	out     io.Writer
}

// NewExecutor creates a deletion executor
func NewExecutor(cfg *ExecutorConfig) (*Executor, error) {
	if cfg.Fs == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if cfg.Rate < 0 {
		return nil, fmt.Errorf("rate cannot be negative (got %v)", cfg.Rate)
	}

	e := &Executor{fs: cfg.Fs, out: cfg.Out}
	if e.out == nil {
		e.out = io.Discard
	}
	if cfg.Rate > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return e, nil
}

// Execute deletes every dupe in result. A path that is also a keep is never
// removed. The returned report is valid even when err is non-nil; err is
// only set when ctx ends the batch early.
func (e *Executor) Execute(ctx context.Context, result *deduplication.Result) (*Report, error) {
	keeps := make(map[string]bool)
	for _, p := range result.KeepPaths() {
		keeps[p] = true
	}

	dupes := result.DupePaths()
	report := &Report{}
	for i, path := range dupes {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("deletion interrupted after %d of %d files: %w", i, len(dupes), err)
		}

		if keeps[path] {
			slog.Warn("Refusing to delete kept file", "path", path)
			report.Refused = append(report.Refused, path)
			fmt.Fprintf(e.out, "%s [%d/%d] %s: kept file, not deleted\n", color.YellowString("!"), i+1, len(dupes), path)
			continue
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return report, fmt.Errorf("deletion interrupted after %d of %d files: %w", i, len(dupes), err)
			}
		}

		if err := e.fs.Remove(path); err != nil {
			report.Failed = append(report.Failed, Failure{Path: path, Err: err})
			fmt.Fprintf(e.out, "%s [%d/%d] %s: %v\n", color.RedString("✗"), i+1, len(dupes), path, err)
			continue
		}
		report.Deleted = append(report.Deleted, path)
		fmt.Fprintf(e.out, "%s [%d/%d] %s\n", color.GreenString("✓"), i+1, len(dupes), path)
	}
	return report, nil
}
