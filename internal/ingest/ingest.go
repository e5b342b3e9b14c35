// Package ingest discovers source documents on disk and fingerprints them
// so byte-identical copies are processed once.
package ingest

// FileResult is the per-file scan outcome.
type FileResult struct {
	Path         string
	Ext          string
	Format       string // PDF | IMAGE | TXT
	HashHex      string
	Size         int64
	Deduplicated bool
	DuplicateOf  string // first path seen with the same hash
	Err          string
}

// Usable reports whether the file should go on to extraction.
func (r FileResult) Usable() bool {
	return r.Err == "" && !r.Deduplicated
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}
