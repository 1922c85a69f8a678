// Package ingest turns a directory of message files into identity records.
//
// Every file is opened, its header parsed and its identity key derived
// independently of every other file, so the work fans out over a bounded
// worker pool and joins before anything downstream runs.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/maildedup/internal/identity"
	"github.com/steveyegge/maildedup/internal/message"
	"github.com/steveyegge/maildedup/internal/types"
)

// ParseError reports a file that could not be turned into a record
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Outcome is the result of ingesting a set of paths
type Outcome struct {
	// Records holds one record per successfully parsed file, in input order
	Records []types.Record

	// Failures lists files skipped because they could not be parsed.
	// Only populated when the pipeline fails open.
	Failures []*ParseError
}

// PipelineConfig holds ingestion pipeline configuration
type PipelineConfig struct {
	Fs                 afero.Fs // Required
	Workers            int      // Concurrent files; must be >= 1
	FailOpen           bool     // Skip unparseable files instead of aborting
	OriginMarkerHeader string   // Header marking secondary-export copies; required
	Progress           Progress // Optional (defaults to NopProgress)
}

// Pipeline parses message files into records concurrently
type Pipeline struct {
	fs           afero.Fs
	workers      int
	failOpen     bool
	originMarker string
	progress     Progress
}

// NewPipeline creates a new ingestion pipeline
func NewPipeline(cfg *PipelineConfig) (*Pipeline, error) {
	if cfg.Fs == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1 (got %d)", cfg.Workers)
	}
	if cfg.OriginMarkerHeader == "" {
		return nil, fmt.Errorf("origin marker header is required")
	}

	progress := cfg.Progress
	if progress == nil {
		progress = NopProgress{}
	}

	return &Pipeline{
		fs:           cfg.Fs,
		workers:      cfg.Workers,
		failOpen:     cfg.FailOpen,
		originMarker: cfg.OriginMarkerHeader,
		progress:     progress,
	}, nil
}

// Run builds one record per path. Paths must be unique.
//
// With FailOpen, unparseable files are collected in Outcome.Failures and the
// run continues. Without it, the first failure cancels the remaining work and
// Run returns an error wrapping the *ParseError.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Outcome, error) {
	type slot struct {
		record  types.Record
		failure *ParseError
		ok      bool
	}
	slots := make([]slot, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rec, err := p.BuildRecord(path)
			p.progress.Advance(path, err)
			if err != nil {
				perr := &ParseError{Path: path, Err: err}
				if !p.failOpen {
					return perr
				}
				slog.Warn("Skipping unparseable file", "path", path, "error", err)
				slots[i].failure = perr
				return nil
			}

			slots[i].record = rec
			slots[i].ok = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingestion aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingestion aborted: %w", err)
	}

	out := &Outcome{Records: make([]types.Record, 0, len(paths))}
	for _, s := range slots {
		switch {
		case s.ok:
			out.Records = append(out.Records, s.record)
		case s.failure != nil:
			out.Failures = append(out.Failures, s.failure)
		}
	}
	return out, nil
}

// BuildRecord opens, parses and fingerprints a single file
func (p *Pipeline) BuildRecord(path string) (types.Record, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return types.Record{}, fmt.Errorf("opening: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return types.Record{}, fmt.Errorf("stat: %w", err)
	}

	msg, err := message.Parse(f)
	if err != nil {
		return types.Record{}, fmt.Errorf("parsing message: %w", err)
	}

	// An unparseable Date leaves the zero time; it only affects reporting.
	date, err := msg.Date()
	if err != nil {
		date = time.Time{}
	}

	return types.NewRecord(
		path,
		identity.Derive(msg),
		!msg.HasHeader(p.originMarker),
		msg.HeaderCount(),
		date,
		info.Size(),
	)
}
