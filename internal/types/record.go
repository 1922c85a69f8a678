package types

import (
	"fmt"
	"time"
)

// Record is the identity key and keep-selection metadata derived from a
// single message file. Records are built once during ingestion and never
// modified afterwards.
type Record struct {
	Path          string    `json:"path" yaml:"path"`
	Key           Key       `json:"key" yaml:"key"`
	PrimaryOrigin bool      `json:"primary_origin" yaml:"primary_origin"` // no secondary-source marker header
	HeaderCount   int       `json:"header_count" yaml:"header_count"`
	Date          time.Time `json:"date,omitempty" yaml:"date,omitempty"` // zero when the Date header is invalid
	Size          int64     `json:"size" yaml:"size"`
}

// NewRecord builds a record and validates it
func NewRecord(path string, key Key, primaryOrigin bool, headerCount int, date time.Time, size int64) (Record, error) {
	r := Record{
		Path:          path,
		Key:           key,
		PrimaryOrigin: primaryOrigin,
		HeaderCount:   headerCount,
		Date:          date,
		Size:          size,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate checks if the record has valid field values
func (r Record) Validate() error {
	if r.Path == "" {
		return fmt.Errorf("path is required")
	}
	if !r.Key.Kind.IsValid() {
		return fmt.Errorf("invalid key kind: %s", r.Key.Kind)
	}
	if r.HeaderCount < 0 {
		return fmt.Errorf("header_count cannot be negative (got %d)", r.HeaderCount)
	}
	if r.Size < 0 {
		return fmt.Errorf("size cannot be negative (got %d)", r.Size)
	}
	return nil
}

// HasValidDate reports whether the record carries a parsed Date
func (r Record) HasValidDate() bool {
	return !r.Date.IsZero()
}

// Group is every record sharing one identity key
type Group struct {
	Key     Key      `json:"key" yaml:"key"`
	Members []Record `json:"members" yaml:"members"`
}

// Size returns the number of members
func (g Group) Size() int {
	return len(g.Members)
}

// GroupResult is the keep-selection outcome for one group
type GroupResult struct {
	Key   Key      `json:"key" yaml:"key"`
	Dupes []Record `json:"dupes" yaml:"dupes"`
	Keep  []Record `json:"keep" yaml:"keep"`
}

// Size returns the number of records the result covers
func (r GroupResult) Size() int {
	return len(r.Dupes) + len(r.Keep)
}

// HasDupes reports whether anything in the group is marked for deletion
func (r GroupResult) HasDupes() bool {
	return len(r.Dupes) > 0
}

// Validate checks the partition invariants against the originating group:
// keep is non-empty, dupes and keep are disjoint and together cover exactly
// the group members, and every record carries the group key.
func (r GroupResult) Validate(g Group) error {
	if len(r.Keep) == 0 {
		return fmt.Errorf("keep must not be empty (group %s)", g.Key)
	}
	if r.Key != g.Key {
		return fmt.Errorf("result key %s does not match group key %s", r.Key, g.Key)
	}
	if r.Size() != g.Size() {
		return fmt.Errorf("result covers %d records, group has %d", r.Size(), g.Size())
	}

	members := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		members[m.Path] = true
	}

	seen := make(map[string]bool, r.Size())
	for _, rec := range append(append([]Record{}, r.Dupes...), r.Keep...) {
		if !members[rec.Path] {
			return fmt.Errorf("path %s is not a member of group %s", rec.Path, g.Key)
		}
		if seen[rec.Path] {
			return fmt.Errorf("path %s appears more than once in result", rec.Path)
		}
		if rec.Key != g.Key {
			return fmt.Errorf("path %s has key %s, want %s", rec.Path, rec.Key, g.Key)
		}
		seen[rec.Path] = true
	}
	return nil
}
