// Package gates holds the checks that must pass before any file is deleted.
package gates

import (
	"context"
)

// GateType identifies different pre-deletion gates
type GateType string

const (
	GateSafety   GateType = "safety"
	GateApproval GateType = "approval"
)

// Result represents the outcome of a gate check
type Result struct {
	Gate   GateType
	Passed bool
	Output string
	Error  error
}

// Gate is a single pre-deletion check
type Gate interface {
	Run(ctx context.Context) *Result
}

// GateProvider is an interface for running a sequence of gates
// This allows tests to substitute canned outcomes
type GateProvider interface {
	// RunAll executes gates in sequence
	// Returns the results and whether all gates passed
	RunAll(ctx context.Context) ([]*Result, bool)
}

// Runner executes gates in order and stops at the first failure, so the
// approval prompt is never shown for a plan that failed its safety check.
type Runner struct {
	gates []Gate
}

// NewRunner creates a runner for the given gates
func NewRunner(gates ...Gate) *Runner {
	return &Runner{gates: gates}
}

// RunAll executes the gates in sequence
// Returns the results of the gates that ran and whether all of them passed
func (r *Runner) RunAll(ctx context.Context) ([]*Result, bool) {
	var results []*Result
	for _, gate := range r.gates {
		if err := ctx.Err(); err != nil {
			results = append(results, &Result{Error: err, Output: "Canceled"})
			return results, false
		}

		result := gate.Run(ctx)
		results = append(results, result)
		if !result.Passed {
			return results, false
		}
	}
	return results, true
}
