package gates

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/steveyegge/maildedup/internal/deduplication"
	"github.com/steveyegge/maildedup/internal/types"
)

type fakeConfirmer struct {
	answer  bool
	err     error
	prompts []string
}

func (f *fakeConfirmer) Confirm(prompt string) (bool, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

type staticGate struct {
	result *Result
	ran    bool
}

func (s *staticGate) Run(context.Context) *Result {
	s.ran = true
	return s.result
}

func testResult(t *testing.T, fs afero.Fs) *deduplication.Result {
	t.Helper()
	key := types.CleanKey(sha256.Sum256([]byte("<a@x>-date-subject")))
	var records []types.Record
	for _, p := range []string{"/m/cur/1", "/m/.Sent/cur/1"} {
		if err := afero.WriteFile(fs, p, []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", p, err)
		}
		records = append(records, types.Record{Path: p, Key: key, PrimaryOrigin: true, HeaderCount: 3, Size: 1})
	}
	return deduplication.Deduplicate(records, deduplication.DefaultConfig())
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	first := &staticGate{result: &Result{Gate: GateSafety, Passed: false}}
	second := &staticGate{result: &Result{Gate: GateApproval, Passed: true}}

	results, ok := NewRunner(first, second).RunAll(context.Background())
	if ok {
		t.Error("Expected runner to fail")
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if second.ran {
		t.Error("Second gate should not run after a failure")
	}
}

func TestRunner_AllPass(t *testing.T) {
	a := &staticGate{result: &Result{Gate: GateSafety, Passed: true}}
	b := &staticGate{result: &Result{Gate: GateApproval, Passed: true}}

	results, ok := NewRunner(a, b).RunAll(context.Background())
	if !ok {
		t.Error("Expected all gates to pass")
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &staticGate{result: &Result{Gate: GateSafety, Passed: true}}
	results, ok := NewRunner(a).RunAll(ctx)
	if ok {
		t.Error("Expected canceled run to fail")
	}
	if a.ran {
		t.Error("Gate should not run after cancellation")
	}
	if len(results) != 1 || !errors.Is(results[0].Error, context.Canceled) {
		t.Errorf("Expected a canceled result, got %+v", results)
	}
}

func TestSafetyGate_Passes(t *testing.T) {
	fs := afero.NewMemMapFs()
	gate, err := NewSafetyGate(fs, testResult(t, fs))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	result := gate.Run(context.Background())
	if !result.Passed {
		t.Errorf("Expected safety gate to pass, got %v", result.Error)
	}
}

func TestSafetyGate_MissingKeep(t *testing.T) {
	fs := afero.NewMemMapFs()
	res := testResult(t, fs)
	if err := fs.Remove(res.KeepPaths()[0]); err != nil {
		t.Fatalf("Failed to remove keep: %v", err)
	}

	gate, _ := NewSafetyGate(fs, res)
	result := gate.Run(context.Background())
	if result.Passed {
		t.Error("Expected safety gate to fail when a kept file is gone")
	}
}

func TestSafetyGate_KeepAlsoDupe(t *testing.T) {
	fs := afero.NewMemMapFs()
	res := testResult(t, fs)
	// Corrupt the plan so the keep is also listed as a dupe
	gr := &res.Groups[0]
	gr.Dupes = append(gr.Dupes, gr.Keep[0])

	gate, _ := NewSafetyGate(fs, res)
	result := gate.Run(context.Background())
	if result.Passed {
		t.Error("Expected safety gate to reject a plan deleting a kept file")
	}
	if result.Error == nil {
		t.Error("Expected an error explaining the rejection")
	}
}

func TestNewSafetyGate_Validation(t *testing.T) {
	if _, err := NewSafetyGate(nil, &deduplication.Result{}); err == nil {
		t.Error("Expected error for missing filesystem")
	}
	if _, err := NewSafetyGate(afero.NewMemMapFs(), nil); err == nil {
		t.Error("Expected error for missing result")
	}
}

func TestNewApprovalGate_Validation(t *testing.T) {
	if _, err := NewApprovalGate(&ApprovalConfig{DupeCount: 1}); err == nil {
		t.Error("Expected error for missing confirmer")
	}
	if _, err := NewApprovalGate(&ApprovalConfig{AutoApprove: true, DupeCount: -1}); err == nil {
		t.Error("Expected error for negative dupe count")
	}
	if _, err := NewApprovalGate(&ApprovalConfig{AutoApprove: true}); err != nil {
		t.Errorf("Expected auto-approve without confirmer to be valid, got %v", err)
	}
}

func TestApprovalGate(t *testing.T) {
	tests := []struct {
		name        string
		autoApprove bool
		dupes       int
		answer      bool
		confirmErr  error
		wantPassed  bool
		wantPrompt  bool
		wantErr     bool
	}{
		{name: "confirmed", dupes: 3, answer: true, wantPassed: true, wantPrompt: true},
		{name: "declined", dupes: 3, answer: false, wantPassed: false, wantPrompt: true},
		{name: "auto-approve skips prompt", autoApprove: true, dupes: 3, wantPassed: true},
		{name: "nothing to delete", dupes: 0, answer: true, wantPassed: false},
		{name: "input error", dupes: 1, confirmErr: errors.New("tty gone"), wantPrompt: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirmer := &fakeConfirmer{answer: tt.answer, err: tt.confirmErr}
			var out bytes.Buffer
			gate, err := NewApprovalGate(&ApprovalConfig{
				Confirmer:   confirmer,
				AutoApprove: tt.autoApprove,
				Out:         &out,
				DupeCount:   tt.dupes,
				Bytes:       2048,
			})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			result := gate.Run(context.Background())
			if result.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v (%s)", result.Passed, tt.wantPassed, result.Output)
			}
			if (result.Error != nil) != tt.wantErr {
				t.Errorf("Error = %v, wantErr %v", result.Error, tt.wantErr)
			}
			if got := len(confirmer.prompts) > 0; got != tt.wantPrompt {
				t.Errorf("prompted = %v, want %v", got, tt.wantPrompt)
			}
			if tt.wantPrompt && !bytes.Contains(out.Bytes(), []byte("2.0 kB reclaimable")) {
				t.Errorf("Expected summary before prompt, got %q", out.String())
			}
		})
	}
}
