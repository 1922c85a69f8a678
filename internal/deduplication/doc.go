// Package deduplication groups message records by identity key and picks the
// canonical copy to keep from each group.
//
// # Overview
//
// Mail collections merged from several backups hold the same logical message
// under different paths. Ingestion turns every file into a types.Record whose
// key fingerprints the message. This package:
//
//  1. Partitions records by exact key equality (GroupRecords)
//  2. Reduces each group to one survivor plus dupes (SelectKeep)
//  3. Aggregates the per-group results into a Result with Stats (Deduplicate)
//
// Everything here is a pure function over already-collected records. There is
// no I/O and no failure path.
//
// # Keep Selection
//
// Candidates are narrowed by ordered stages. A stage that would remove every
// candidate is skipped.
//
//   - Primary origin: prefer copies without the secondary-export marker header
//   - Header count: keep only the copies with the fewest header fields, which
//     are the least touched by relaying and re-import
//   - Folder: for each preferred folder name in order (default Sent, then
//     Archive), if any candidate path contains it, keep only those paths
//   - Canonical: keep the lexicographically smallest remaining path
//
// Exactly one record survives per group. Ties on every signal are resolved by
// path so the outcome does not depend on ingestion order.
//
// # Usage
//
//	result := deduplication.Deduplicate(records, deduplication.DefaultConfig())
//	for _, g := range result.Groups {
//	    for _, dupe := range g.Dupes {
//	        fmt.Println("would delete", dupe.Path)
//	    }
//	}
//	fmt.Printf("%d messages, %d dupes, %d groups\n",
//	    result.Stats.TotalMessages, result.Stats.DupeCount, result.Stats.GroupCount)
//
// # Ordering
//
// Groups are returned ascending by member count, then by key. The order is for
// reading the report only; each group is resolved independently.
package deduplication
