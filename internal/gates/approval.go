package gates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Confirmer asks a yes/no question
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ReadlineConfirmer prompts on a terminal. Only "y" or "yes" confirm; any
// other answer, an empty line, EOF or an interrupt declines.
type ReadlineConfirmer struct {
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Confirm implements Confirmer
func (c *ReadlineConfirmer) Confirm(prompt string) (bool, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		Stdin:           c.Stdin,
		Stdout:          c.Stdout,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return false, fmt.Errorf("opening prompt: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ApprovalGate asks a human to confirm deleting the dupes
type ApprovalGate struct {
	confirmer   Confirmer
	autoApprove bool
	out         io.Writer
	dupeCount   int
	bytes       int64
}

// ApprovalConfig holds configuration for the approval gate
type ApprovalConfig struct {
	Confirmer   Confirmer // Required unless AutoApprove
	AutoApprove bool      // Skip the prompt (--yes or MAILDEDUP_AUTO_APPROVE)
	Out         io.Writer // Where the summary is printed; defaults to io.Discard
	DupeCount   int
	Bytes       int64
}

// NewApprovalGate creates a new approval gate
func NewApprovalGate(cfg *ApprovalConfig) (*ApprovalGate, error) {
	if cfg.Confirmer == nil && !cfg.AutoApprove {
		return nil, fmt.Errorf("confirmer is required unless auto-approve is set")
	}
	if cfg.DupeCount < 0 {
		return nil, fmt.Errorf("dupe count cannot be negative (got %d)", cfg.DupeCount)
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}

	return &ApprovalGate{
		confirmer:   cfg.Confirmer,
		autoApprove: cfg.AutoApprove,
		out:         out,
		dupeCount:   cfg.DupeCount,
		bytes:       cfg.Bytes,
	}, nil
}

// Run presents the approval prompt and returns the result
func (g *ApprovalGate) Run(ctx context.Context) *Result {
	result := &Result{Gate: GateApproval}

	if g.dupeCount == 0 {
		result.Output = "Nothing to delete"
		return result
	}

	if g.autoApprove {
		result.Passed = true
		result.Output = "Auto-approved"
		return result
	}

	fmt.Fprintf(g.out, "\n%s %d duplicate file(s), %s reclaimable\n",
		color.YellowString("About to delete"), g.dupeCount, humanize.Bytes(uint64(g.bytes)))

	ok, err := g.confirmer.Confirm(fmt.Sprintf("Delete %d file(s)? [y/N]: ", g.dupeCount))
	if err != nil {
		result.Error = fmt.Errorf("failed to get user input: %w", err)
		result.Output = "Error reading user input"
		return result
	}
	if !ok {
		result.Output = "Declined by user"
		return result
	}

	result.Passed = true
	result.Output = "Approved by user"
	return result
}
