package gates

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/steveyegge/maildedup/internal/deduplication"
)

// SafetyGate verifies a deletion plan before anything is removed: the result
// must satisfy its partition invariants, no dupe may also be a keep, and
// every keep must still exist on disk.
type SafetyGate struct {
	fs     afero.Fs
	result *deduplication.Result
}

// NewSafetyGate creates a safety gate for a deduplication result
func NewSafetyGate(fs afero.Fs, result *deduplication.Result) (*SafetyGate, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if result == nil {
		return nil, fmt.Errorf("result is required")
	}
	return &SafetyGate{fs: fs, result: result}, nil
}

// Run checks the plan
func (g *SafetyGate) Run(ctx context.Context) *Result {
	result := &Result{Gate: GateSafety}

	if err := g.result.Validate(); err != nil {
		result.Error = fmt.Errorf("inconsistent deduplication result: %w", err)
		result.Output = "Deletion plan failed validation"
		return result
	}

	keeps := make(map[string]bool)
	for _, p := range g.result.KeepPaths() {
		keeps[p] = true
	}
	for _, p := range g.result.DupePaths() {
		if keeps[p] {
			result.Error = fmt.Errorf("path %s is marked both keep and dupe", p)
			result.Output = "Deletion plan would remove a kept file"
			return result
		}
	}

	for p := range keeps {
		if err := ctx.Err(); err != nil {
			result.Error = err
			result.Output = "Canceled"
			return result
		}
		if _, err := g.fs.Stat(p); err != nil {
			result.Error = fmt.Errorf("kept file %s is no longer readable: %w", p, err)
			result.Output = "A kept file changed since the scan"
			return result
		}
	}

	result.Passed = true
	result.Output = fmt.Sprintf("%d dupes checked against %d kept files", len(g.result.DupePaths()), len(keeps))
	return result
}
