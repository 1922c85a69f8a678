package ingest

import "sync/atomic"

// Progress receives one call per processed file. Implementations must be
// safe for concurrent use; Advance is called from worker goroutines.
type Progress interface {
	Advance(path string, err error)
}

// NopProgress discards progress updates
type NopProgress struct{}

// Advance implements Progress
func (NopProgress) Advance(string, error) {}

// Counter is a Progress that counts processed and failed files
type Counter struct {
	total  int64
	done   atomic.Int64
	failed atomic.Int64
}

// NewCounter creates a counter expecting total files
func NewCounter(total int) *Counter {
	return &Counter{total: int64(total)}
}

// Advance implements Progress
func (c *Counter) Advance(_ string, err error) {
	c.done.Add(1)
	if err != nil {
		c.failed.Add(1)
	}
}

// Total returns the expected number of files
func (c *Counter) Total() int64 { return c.total }

// Done returns the number of files processed so far, failures included
func (c *Counter) Done() int64 { return c.done.Load() }

// Failed returns the number of files that could not be parsed
func (c *Counter) Failed() int64 { return c.failed.Load() }
