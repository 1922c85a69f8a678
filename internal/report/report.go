// Package report renders deduplication results for people (colored text)
// and for tools (JSON or YAML).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/maildedup/internal/deduplication"
	"github.com/steveyegge/maildedup/internal/ingest"
	"github.com/steveyegge/maildedup/internal/types"
)

// Format selects the report encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

// Options controls text rendering
type Options struct {
	// OnlyDups omits groups without duplicates from the per-group blocks.
	// The summary always covers every group.
	OnlyDups bool
}

// Skipped is a file left out of grouping because it could not be parsed
type Skipped struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Document is the exported form of a run
type Document struct {
	RunID   string              `json:"run_id" yaml:"run_id"`
	Root    string              `json:"root" yaml:"root"`
	Groups  []types.GroupResult `json:"groups" yaml:"groups"`
	Stats   deduplication.Stats `json:"stats" yaml:"stats"`
	Skipped []Skipped           `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// NewDocument assembles the exported form of a run
func NewDocument(root string, result *deduplication.Result, failures []*ingest.ParseError) *Document {
	doc := &Document{
		RunID:  result.RunID,
		Root:   root,
		Groups: result.Groups,
		Stats:  result.Stats,
	}
	for _, f := range failures {
		doc.Skipped = append(doc.Skipped, Skipped{Path: f.Path, Error: f.Err.Error()})
	}
	return doc
}

// Reporter writes reports to an output stream
type Reporter struct {
	out  io.Writer
	opts Options
}

// New creates a reporter writing to out
func New(out io.Writer, opts Options) *Reporter {
	return &Reporter{out: out, opts: opts}
}

// Write renders doc in the given format
func (r *Reporter) Write(doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding JSON report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding YAML report: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		r.WriteText(doc)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteText renders the per-group blocks followed by the summary
func (r *Reporter) WriteText(doc *Document) {
	for _, gr := range doc.Groups {
		if r.opts.OnlyDups && !gr.HasDupes() {
			continue
		}
		r.writeGroup(gr)
	}
	r.writeSkipped(doc.Skipped)
	r.writeSummary(doc)
}

func (r *Reporter) writeGroup(gr types.GroupResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	tag := cyan("[clean]")
	if !gr.Key.IsClean() {
		tag = yellow("[dirty]")
	}
	fmt.Fprintf(r.out, "%s %s\n", tag, gr.Key.Hex())

	if len(gr.Dupes) > 0 {
		fmt.Fprintf(r.out, "  %s\n", red("dupes:"))
		for _, d := range gr.Dupes {
			fmt.Fprintf(r.out, "    %s\n", formatRecord(d))
		}
	}
	fmt.Fprintf(r.out, "  %s\n", green("keep:"))
	for _, k := range gr.Keep {
		fmt.Fprintf(r.out, "    %s\n", formatRecord(k))
	}
	fmt.Fprintln(r.out)
}

func formatRecord(rec types.Record) string {
	gray := color.New(color.FgHiBlack).SprintFunc()
	origin := "primary"
	if !rec.PrimaryOrigin {
		origin = "secondary"
	}
	return fmt.Sprintf("%s %s", rec.Path, gray(fmt.Sprintf("(headers: %d, origin: %s)", rec.HeaderCount, origin)))
}

func (r *Reporter) writeSkipped(skipped []Skipped) {
	if len(skipped) == 0 {
		return
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(r.out, "%s\n", yellow(fmt.Sprintf("⚠  Skipped %d unparseable file(s):", len(skipped))))
	for _, s := range skipped {
		fmt.Fprintf(r.out, "    %s: %s\n", s.Path, s.Error)
	}
	fmt.Fprintln(r.out)
}

func (r *Reporter) writeSummary(doc *Document) {
	bold := color.New(color.Bold).SprintFunc()
	s := doc.Stats

	fmt.Fprintf(r.out, "%s\n", bold("Summary:"))
	fmt.Fprintf(r.out, "  Run:             %s\n", doc.RunID)
	fmt.Fprintf(r.out, "  Total emails:    %s\n", humanize.Comma(int64(s.TotalMessages)))
	fmt.Fprintf(r.out, "  Total dupes:     %s\n", humanize.Comma(int64(s.DupeCount)))
	fmt.Fprintf(r.out, "  Unique groups:   %s (%d clean, %d dirty)\n",
		humanize.Comma(int64(s.GroupCount)), s.CleanGroups, s.DirtyGroups)
	fmt.Fprintf(r.out, "  Reclaimable:     %s\n", humanize.Bytes(uint64(s.ReclaimableBytes)))
	if len(doc.Skipped) > 0 {
		fmt.Fprintf(r.out, "  Skipped:         %d unparseable\n", len(doc.Skipped))
	}
}
