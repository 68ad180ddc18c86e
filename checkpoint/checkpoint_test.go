package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	state := New("run-1", 4096, 64, 8192, 1_000_000)

	if err := Save(path, state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.RunID != state.RunID || loaded.NextOffset != state.NextOffset ||
		loaded.ChunkSize != state.ChunkSize || loaded.Overlap != state.Overlap ||
		loaded.EvidenceLen != state.EvidenceLen {
		t.Errorf("expected loaded state to match saved state, got %+v vs %+v", loaded, state)
	}
	if loaded.Version != 1 {
		t.Errorf("expected version 1, got %d", loaded.Version)
	}
}

func TestSaveOverwritesPreviousCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := Save(path, New("run-1", 4096, 64, 100, 1000)); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := Save(path, New("run-1", 4096, 64, 9999, 1000)); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.NextOffset != 9999 {
		t.Errorf("expected the latest NextOffset 9999, got %d", loaded.NextOffset)
	}
}

func TestLoadMissingFileReturnsErrNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadMalformedJSONErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error parsing malformed JSON")
	}
}

func TestCompatibleMatchesExactParameters(t *testing.T) {
	state := New("run-1", 4096, 64, 8192, 1_000_000)
	if !state.Compatible(4096, 64, 1_000_000) {
		t.Error("expected Compatible to report true for matching parameters")
	}
}

func TestCompatibleRejectsDifferentChunkSize(t *testing.T) {
	state := New("run-1", 4096, 64, 8192, 1_000_000)
	if state.Compatible(8192, 64, 1_000_000) {
		t.Error("expected Compatible to reject a different chunk_size")
	}
}

func TestCompatibleRejectsDifferentEvidenceLength(t *testing.T) {
	state := New("run-1", 4096, 64, 8192, 1_000_000)
	if state.Compatible(4096, 64, 2_000_000) {
		t.Error("expected Compatible to reject a different evidence length")
	}
}
