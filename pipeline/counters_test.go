package pipeline

import (
	"sync"
	"testing"
)

func TestCountersAccessorsReflectAtomicState(t *testing.T) {
	c := &Counters{}
	c.BytesScanned.Add(4096)
	c.ChunksProcessed.Add(1)
	c.HitsFound.Add(3)
	c.FilesCarved.Add(2)

	if c.BytesScannedValue() != 4096 {
		t.Errorf("expected BytesScannedValue 4096, got %d", c.BytesScannedValue())
	}
	if c.ChunksProcessedValue() != 1 {
		t.Errorf("expected ChunksProcessedValue 1, got %d", c.ChunksProcessedValue())
	}
	if c.HitsFoundValue() != 3 {
		t.Errorf("expected HitsFoundValue 3, got %d", c.HitsFoundValue())
	}
	if c.FilesCarvedValue() != 2 {
		t.Errorf("expected FilesCarvedValue 2, got %d", c.FilesCarvedValue())
	}
}

func TestCountersConcurrentAddsAllLand(t *testing.T) {
	c := &Counters{}
	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			c.BytesScanned.Add(1)
			c.HitsFound.Add(1)
		}()
	}
	wg.Wait()

	if c.BytesScannedValue() != workers {
		t.Errorf("expected %d, got %d", workers, c.BytesScannedValue())
	}
	if c.HitsFoundValue() != workers {
		t.Errorf("expected %d, got %d", workers, c.HitsFoundValue())
	}
}

func TestCountersZeroValueIsUsable(t *testing.T) {
	var c Counters
	if c.BytesScannedValue() != 0 || c.ChunksProcessedValue() != 0 || c.HitsFoundValue() != 0 || c.FilesCarvedValue() != 0 {
		t.Error("expected a zero-value Counters to report all zeros")
	}
}
