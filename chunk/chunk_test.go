package chunk

import "testing"

func TestPlanBasic(t *testing.T) {
	chunks := Plan(10000, 4096, 64)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	if chunks[0].Start != 0 || chunks[0].ValidLength != 4096 || chunks[0].Length != 4096+64 {
		t.Errorf("chunk 0 mismatch: %+v", chunks[0])
	}
	if chunks[1].Start != 4096 || chunks[1].ValidLength != 4096 || chunks[1].Length != 4096+64 {
		t.Errorf("chunk 1 mismatch: %+v", chunks[1])
	}
	// Last chunk: start=8192, remaining=1808, both ValidLength and Length clamp to it.
	if chunks[2].Start != 8192 || chunks[2].ValidLength != 1808 || chunks[2].Length != 1808 {
		t.Errorf("chunk 2 mismatch: %+v", chunks[2])
	}
}

func TestPlanExactMultiple(t *testing.T) {
	chunks := Plan(8192, 4096, 64)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	// First chunk still has 8192 bytes of evidence ahead of it, so its
	// overlap window reads the full 64 bytes past its own valid region.
	if chunks[0].Length != 4160 {
		t.Errorf("expected chunk 0 length 4160, got %d", chunks[0].Length)
	}
	// Last chunk has nothing left past its own valid region, so Length
	// clamps to the remaining bytes instead of reaching past EOF.
	if chunks[1].Start != 4096 || chunks[1].Length != 4096 {
		t.Errorf("chunk 1 mismatch: %+v", chunks[1])
	}
}

func TestPlanZeroChunkSize(t *testing.T) {
	if chunks := Plan(1000, 0, 64); chunks != nil {
		t.Errorf("expected nil chunks for zero chunk size, got %v", chunks)
	}
}

func TestPlanNegativeOverlapClampedToZero(t *testing.T) {
	chunks := Plan(4096, 4096, -10)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Length != 4096 {
		t.Errorf("expected negative overlap clamped to 0, got length %d", chunks[0].Length)
	}
}

func TestPlanEmptyEvidence(t *testing.T) {
	if chunks := Plan(0, 4096, 64); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty evidence, got %d", len(chunks))
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	a := Plan(100000, 4096, 128)
	b := Plan(100000, 4096, 128)
	if len(a) != len(b) {
		t.Fatalf("plan length differs across calls: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs across calls: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestChunkEndAndOverlapStart(t *testing.T) {
	c := ScanChunk{ID: 0, Start: 100, Length: 200, ValidLength: 150}
	if c.End() != 300 {
		t.Errorf("expected End() == 300, got %d", c.End())
	}
	if c.OverlapStart() != 250 {
		t.Errorf("expected OverlapStart() == 250, got %d", c.OverlapStart())
	}
}

func TestSkipBefore(t *testing.T) {
	chunks := Plan(20000, 4096, 64)

	all := SkipBefore(chunks, 0)
	if len(all) != len(chunks) {
		t.Errorf("resumeOffset 0 should return all chunks, got %d of %d", len(all), len(chunks))
	}

	resumed := SkipBefore(chunks, 8192)
	if len(resumed) == 0 || resumed[0].Start != 8192 {
		t.Fatalf("expected resume to land on the chunk starting at 8192, got %+v", resumed)
	}

	none := SkipBefore(chunks, 1<<40)
	if none != nil {
		t.Errorf("expected nil for a resume offset past every chunk, got %v", none)
	}
}
