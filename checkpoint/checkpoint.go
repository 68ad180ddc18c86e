// Package checkpoint persists and restores the next-chunk cursor so a run
// can resume after an interruption instead of rescanning from byte zero.
package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	atomicfile "github.com/natefinch/atomic"
)

// State is the small text blob a run checkpoints periodically. The pair
// (RunID, NextOffset) is the resume key: on restart, the dispatcher skips
// every chunk whose start is below NextOffset.
type State struct {
	Version      int       `json:"version"`
	RunID        string    `json:"run_id"`
	ChunkSize    int64     `json:"chunk_size"`
	Overlap      int64     `json:"overlap"`
	NextOffset   int64     `json:"next_offset"`
	EvidenceLen  int64     `json:"evidence_len"`
	CreatedAt    time.Time `json:"created_at"`
}

// New builds a State with Version fixed at 1, the only schema version the
// codec currently understands.
func New(runID string, chunkSize, overlap, nextOffset, evidenceLen int64) State {
	return State{
		Version:     1,
		RunID:       runID,
		ChunkSize:   chunkSize,
		Overlap:     overlap,
		NextOffset:  nextOffset,
		EvidenceLen: evidenceLen,
		CreatedAt:   time.Now().UTC(),
	}
}

// Save serializes state to path. The write is atomic; a crash mid-write
// leaves either the old checkpoint or the new one, never a truncated file
// a resumed run would fail to parse.
func Save(path string, state State) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	if err := atomicfile.WriteFile(path, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("checkpoint: write %s: %w", path, err)
	}
	return nil
}

// Load reads and parses a checkpoint file. A missing file is reported as
// os.ErrNotExist via errors.Is.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("checkpoint: parse %s: %w", path, err)
	}
	return state, nil
}

// Compatible reports whether a loaded checkpoint matches the chunking
// parameters of the current run. A checkpoint taken with a different
// chunk_size or overlap, or against evidence of a different length, is
// unsafe to resume from and the dispatcher must restart at offset 0.
func (s State) Compatible(chunkSize, overlap, evidenceLen int64) bool {
	return s.ChunkSize == chunkSize && s.Overlap == overlap && s.EvidenceLen == evidenceLen
}
