package deduplication

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/steveyegge/maildedup/internal/types"
)

// Result is the outcome of a deduplication pass over one run's records
type Result struct {
	// RunID identifies the run in reports and exports
	RunID string `json:"run_id" yaml:"run_id"`

	// Groups holds one result per distinct key, ascending by size
	Groups []types.GroupResult `json:"groups" yaml:"groups"`

	// Statistics about the pass
	Stats Stats `json:"stats" yaml:"stats"`
}

// Stats summarizes a deduplication pass
type Stats struct {
	// TotalMessages is the number of records grouped
	TotalMessages int `json:"total_messages" yaml:"total_messages"`

	// DupeCount is the number of records marked for deletion
	DupeCount int `json:"dupe_count" yaml:"dupe_count"`

	// GroupCount is the number of distinct identity keys
	GroupCount int `json:"group_count" yaml:"group_count"`

	// CleanGroups and DirtyGroups split GroupCount by key confidence
	CleanGroups int `json:"clean_groups" yaml:"clean_groups"`
	DirtyGroups int `json:"dirty_groups" yaml:"dirty_groups"`

	// ReclaimableBytes is the total size of the dupes
	ReclaimableBytes int64 `json:"reclaimable_bytes" yaml:"reclaimable_bytes"`

	// ProcessingTimeMs is the time spent grouping and selecting
	ProcessingTimeMs int64 `json:"processing_time_ms" yaml:"processing_time_ms"`
}

// Deduplicate groups records by key and selects the survivor of every group
func Deduplicate(records []types.Record, cfg Config) *Result {
	start := time.Now()

	groups := GroupRecords(records)
	result := &Result{
		RunID:  uuid.New().String(),
		Groups: make([]types.GroupResult, 0, len(groups)),
	}

	for _, g := range groups {
		gr := SelectKeep(g, cfg.PreferredFolders)
		result.Groups = append(result.Groups, gr)

		result.Stats.TotalMessages += g.Size()
		result.Stats.DupeCount += len(gr.Dupes)
		if g.Key.IsClean() {
			result.Stats.CleanGroups++
		} else {
			result.Stats.DirtyGroups++
		}
		for _, d := range gr.Dupes {
			result.Stats.ReclaimableBytes += d.Size
		}
	}
	result.Stats.GroupCount = len(result.Groups)
	result.Stats.ProcessingTimeMs = time.Since(start).Milliseconds()

	return result
}

// GroupRecords partitions records by exact key equality.
//
// Members of each group are sorted by path. Groups are ordered ascending by
// member count, ties broken by key.
func GroupRecords(records []types.Record) []types.Group {
	byKey := make(map[types.Key][]types.Record)
	for _, r := range records {
		byKey[r.Key] = append(byKey[r.Key], r)
	}

	groups := make([]types.Group, 0, len(byKey))
	for key, members := range byKey {
		sort.Slice(members, func(i, j int) bool {
			return members[i].Path < members[j].Path
		})
		groups = append(groups, types.Group{Key: key, Members: members})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Size() != groups[j].Size() {
			return groups[i].Size() < groups[j].Size()
		}
		return groups[i].Key.Compare(groups[j].Key) < 0
	})
	return groups
}

// SelectKeep partitions a group into the record to keep and the dupes.
// The group must be non-empty.
func SelectKeep(g types.Group, preferredFolders []string) types.GroupResult {
	candidates := g.Members

	candidates = narrow(candidates, func(r types.Record) bool {
		return r.PrimaryOrigin
	})

	minHeaders := candidates[0].HeaderCount
	for _, c := range candidates[1:] {
		if c.HeaderCount < minHeaders {
			minHeaders = c.HeaderCount
		}
	}
	candidates = narrow(candidates, func(r types.Record) bool {
		return r.HeaderCount == minHeaders
	})

	for _, folder := range preferredFolders {
		var inFolder []types.Record
		for _, c := range candidates {
			if strings.Contains(c.Path, folder) {
				inFolder = append(inFolder, c)
			}
		}
		if len(inFolder) > 0 {
			candidates = inFolder
			break
		}
	}

	keep := candidates[0]
	for _, c := range candidates[1:] {
		if c.Path < keep.Path {
			keep = c
		}
	}

	result := types.GroupResult{
		Key:   g.Key,
		Keep:  []types.Record{keep},
		Dupes: make([]types.Record, 0, len(g.Members)-1),
	}
	for _, m := range g.Members {
		if m.Path != keep.Path {
			result.Dupes = append(result.Dupes, m)
		}
	}
	return result
}

// narrow returns the candidates matching pred, or the original candidates if
// none match
func narrow(candidates []types.Record, pred func(types.Record) bool) []types.Record {
	var out []types.Record
	for _, c := range candidates {
		if pred(c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

// Validate checks the result's stats against its groups and every group's
// partition invariants. The originating groups are rebuilt from the results
// themselves, so this catches overlap and missing keeps but not records that
// were dropped before grouping.
func (r *Result) Validate() error {
	var stats Stats
	seen := make(map[string]types.Key)

	for _, gr := range r.Groups {
		members := append(append([]types.Record{}, gr.Dupes...), gr.Keep...)
		if err := gr.Validate(types.Group{Key: gr.Key, Members: members}); err != nil {
			return err
		}
		for _, m := range members {
			if other, dup := seen[m.Path]; dup {
				return fmt.Errorf("path %s appears in groups %s and %s", m.Path, other, gr.Key)
			}
			seen[m.Path] = gr.Key
		}

		stats.TotalMessages += gr.Size()
		stats.DupeCount += len(gr.Dupes)
		if gr.Key.IsClean() {
			stats.CleanGroups++
		} else {
			stats.DirtyGroups++
		}
	}
	stats.GroupCount = len(r.Groups)

	if r.Stats.TotalMessages != stats.TotalMessages {
		return fmt.Errorf("stats.total_messages (%d) does not match groups (%d)",
			r.Stats.TotalMessages, stats.TotalMessages)
	}
	if r.Stats.DupeCount != stats.DupeCount {
		return fmt.Errorf("stats.dupe_count (%d) does not match groups (%d)",
			r.Stats.DupeCount, stats.DupeCount)
	}
	if r.Stats.GroupCount != stats.GroupCount {
		return fmt.Errorf("stats.group_count (%d) does not match groups (%d)",
			r.Stats.GroupCount, stats.GroupCount)
	}
	if r.Stats.CleanGroups+r.Stats.DirtyGroups != r.Stats.GroupCount {
		return fmt.Errorf("stats.clean_groups (%d) + stats.dirty_groups (%d) does not match group_count (%d)",
			r.Stats.CleanGroups, r.Stats.DirtyGroups, r.Stats.GroupCount)
	}
	if r.Stats.CleanGroups != stats.CleanGroups {
		return fmt.Errorf("stats.clean_groups (%d) does not match groups (%d)",
			r.Stats.CleanGroups, stats.CleanGroups)
	}
	return nil
}

// DupePaths returns every path marked for deletion, in report order
func (r *Result) DupePaths() []string {
	var paths []string
	for _, gr := range r.Groups {
		for _, d := range gr.Dupes {
			paths = append(paths, d.Path)
		}
	}
	return paths
}

// KeepPaths returns every surviving path
func (r *Result) KeepPaths() []string {
	var paths []string
	for _, gr := range r.Groups {
		for _, k := range gr.Keep {
			paths = append(paths, k.Path)
		}
	}
	return paths
}
