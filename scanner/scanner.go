// Package scanner finds magic-byte offsets inside a chunk of evidence.
package scanner

import (
	"github.com/caseforge/filecarver/chunk"
)

// Pattern is a single header signature a scanner searches for.
type Pattern struct {
	FileTypeID string
	PatternID  int
	Bytes      []byte
}

// Hit is a scanner match: a pattern found at a byte offset local to the
// chunk that produced it.
type Hit struct {
	ChunkID     uint64
	LocalOffset int
	PatternID   int
	FileTypeID  string
}

// Scanner finds magic-byte offsets inside a chunk. Two implementations of
// this contract exist, CPU and GPU, and the pipeline treats them
// interchangeably.
type Scanner interface {
	// ScanChunk returns every Hit found in data, which must satisfy
	// len(data) <= c.Length. Offsets are returned in non-decreasing order
	// per pattern; order across patterns is unspecified.
	ScanChunk(c chunk.ScanChunk, data []byte) ([]Hit, error)

	// Name identifies the scanner implementation for logging/telemetry.
	Name() string
}

// New builds the default CPU scanner over the given pattern set.
func New(patterns []Pattern) Scanner {
	return NewCPUScanner(patterns)
}
