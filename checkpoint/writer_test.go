package checkpoint

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWriterFlushSavesCurrentOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	w := NewWriter(path, "run-1", 4096, 64, 1_000_000, 0) // interval<=0: no background loop

	w.Advance(2048)
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.NextOffset != 2048 {
		t.Errorf("expected NextOffset 2048, got %d", loaded.NextOffset)
	}
}

func TestWriterCloseSavesFinalCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	w := NewWriter(path, "run-1", 4096, 64, 1_000_000, 0)

	w.Advance(512)
	w.Advance(4096)
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.NextOffset != 4096 {
		t.Errorf("expected the last-advanced offset 4096, got %d", loaded.NextOffset)
	}
}

func TestWriterBackgroundLoopPeriodicallyFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	w := NewWriter(path, "run-1", 4096, 64, 1_000_000, 10*time.Millisecond)
	defer w.Close()

	w.Advance(777)

	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			loaded, err := Load(path)
			if err == nil && loaded.NextOffset == 777 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the background writer to flush a checkpoint")
		}
	}
}

func TestCompleteChunkAdvancesOnlyAcrossContiguousRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	w := NewWriter(path, "run-1", 4096, 64, 1_000_000, 0)
	w.InitChunkProgress(0)

	w.CompleteChunk(1, 200) // chunk 1 finishes before chunk 0: nothing should advance yet
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.NextOffset != 0 {
		t.Errorf("expected NextOffset to stay 0 while chunk 0 is still outstanding, got %d", loaded.NextOffset)
	}

	w.CompleteChunk(0, 100) // closes the gap: both chunk 0 and the buffered chunk 1 should now count
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	loaded, err = Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.NextOffset != 200 {
		t.Errorf("expected NextOffset 200 once the gap closed, got %d", loaded.NextOffset)
	}
}

func TestInitChunkProgressSeedsResumedRunStartID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	w := NewWriter(path, "run-1", 4096, 64, 1_000_000, 0)
	w.InitChunkProgress(5) // a resumed run's plan starts at a nonzero chunk ID

	w.CompleteChunk(5, 500)
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.NextOffset != 500 {
		t.Errorf("expected NextOffset 500 once the seeded start chunk completed, got %d", loaded.NextOffset)
	}
}

func TestNewWriterNonPositiveIntervalDisablesBackgroundLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	w := NewWriter(path, "run-1", 4096, 64, 1_000_000, -1)
	defer w.Close()

	// No background flush should have happened; the file must not exist yet.
	if _, err := Load(path); err == nil {
		t.Error("expected no checkpoint file to exist before any explicit Flush")
	}
}
