package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/steveyegge/maildedup/internal/deduplication"
	"github.com/steveyegge/maildedup/internal/ingest"
	"github.com/steveyegge/maildedup/internal/report"
)

// ingestFlags are shared by scan and clean
type ingestFlags struct {
	workers  int
	failFast bool
	onlyDups bool
}

func (f *ingestFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "files parsed concurrently (default from config)")
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "abort on the first unparseable file instead of skipping it")
	cmd.Flags().BoolVar(&f.onlyDups, "only-dups", false, "only print groups that have duplicates")
}

// apply overlays explicitly set flags onto the resolved config
func (f *ingestFlags) apply(cmd *cobra.Command, opts *rootOptions) error {
	if cmd.Flags().Changed("workers") {
		opts.cfg.Workers = f.workers
	}
	if f.failFast {
		opts.cfg.FailOpen = false
	}
	if err := opts.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// scanResult is everything a scan produced
type scanResult struct {
	root     string
	result   *deduplication.Result
	failures []*ingest.ParseError
}

func (s *scanResult) document() *report.Document {
	return report.NewDocument(s.root, s.result, s.failures)
}

// scan enumerates root, ingests every message and deduplicates the records
func scan(ctx context.Context, opts *rootOptions, root string, progressOut io.Writer) (*scanResult, error) {
	paths, err := ingest.Enumerate(ctx, opts.fs, root, opts.cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	progress := newProgressPrinter(progressOut, len(paths))
	pipeline, err := ingest.NewPipeline(&ingest.PipelineConfig{
		Fs:                 opts.fs,
		Workers:            opts.cfg.Workers,
		FailOpen:           opts.cfg.FailOpen,
		OriginMarkerHeader: opts.cfg.OriginMarkerHeader,
		Progress:           progress,
	})
	if err != nil {
		return nil, err
	}

	outcome, err := pipeline.Run(ctx, paths)
	progress.Finish()
	if err != nil {
		return nil, err
	}

	result := deduplication.Deduplicate(outcome.Records, deduplication.Config{
		PreferredFolders: opts.cfg.PreferredFolders,
	})
	return &scanResult{root: root, result: result, failures: outcome.Failures}, nil
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var flags ingestFlags
	var format string

	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Report duplicate messages without changing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.apply(cmd, opts); err != nil {
				return err
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			res, err := scan(cmd.Context(), opts, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			r := report.New(cmd.OutOrStdout(), report.Options{OnlyDups: flags.onlyDups})
			return r.Write(res.document(), f)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}
