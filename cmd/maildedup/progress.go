package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/steveyegge/maildedup/internal/ingest"
)

// progressPrinter prints a running count of parsed files to stderr
type progressPrinter struct {
	*ingest.Counter

	mu    sync.Mutex
	out   io.Writer
	every int64
}

func newProgressPrinter(out io.Writer, total int) *progressPrinter {
	every := int64(total / 20)
	if every < 1 {
		every = 1
	}
	return &progressPrinter{Counter: ingest.NewCounter(total), out: out, every: every}
}

// Advance implements ingest.Progress
func (p *progressPrinter) Advance(path string, err error) {
	p.Counter.Advance(path, err)

	done := p.Done()
	if done%p.every != 0 && done != p.Total() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r%s %d/%d files", color.New(color.FgHiBlack).Sprint("Parsing"), done, p.Total())
}

// Finish ends the progress line
func (p *progressPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Total() == 0 {
		return
	}
	if failed := p.Failed(); failed > 0 {
		fmt.Fprintf(p.out, " (%s)", color.YellowString("%d unparseable", failed))
	}
	fmt.Fprintln(p.out)
}
