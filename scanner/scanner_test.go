package scanner

import (
	"testing"

	"github.com/caseforge/filecarver/chunk"
)

func bmpPattern() Pattern { return Pattern{FileTypeID: "bmp", PatternID: 1, Bytes: []byte("BM")} }
func pngPattern() Pattern {
	return Pattern{FileTypeID: "png", PatternID: 2, Bytes: []byte{0x89, 0x50, 0x4E, 0x47}}
}

func TestNewReturnsCPUScannerByDefault(t *testing.T) {
	s := New([]Pattern{bmpPattern()})
	if s.Name() != "cpu-aho-corasick" {
		t.Errorf("expected New() to default to the CPU scanner, got %q", s.Name())
	}
}

func TestScanChunkFindsSinglePatternAtOffset(t *testing.T) {
	s := New([]Pattern{bmpPattern()})
	data := []byte("xxxBMyyyy")
	c := chunk.ScanChunk{ID: 1, Start: 0, Length: int64(len(data)), ValidLength: int64(len(data))}

	hits, err := s.ScanChunk(c, data)
	if err != nil {
		t.Fatalf("ScanChunk failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d: %+v", len(hits), hits)
	}
	if hits[0].LocalOffset != 3 || hits[0].FileTypeID != "bmp" || hits[0].ChunkID != 1 {
		t.Errorf("unexpected hit: %+v", hits[0])
	}
}

func TestScanChunkFindsMultiplePatternsInOnePass(t *testing.T) {
	s := New([]Pattern{bmpPattern(), pngPattern()})
	data := []byte{}
	data = append(data, []byte("BM")...)
	data = append(data, make([]byte, 5)...)
	data = append(data, 0x89, 0x50, 0x4E, 0x47)

	c := chunk.ScanChunk{ID: 7, Start: 0, Length: int64(len(data)), ValidLength: int64(len(data))}
	hits, err := s.ScanChunk(c, data)
	if err != nil {
		t.Fatalf("ScanChunk failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
	}

	byType := map[string]Hit{}
	for _, h := range hits {
		byType[h.FileTypeID] = h
	}
	if byType["bmp"].LocalOffset != 0 {
		t.Errorf("expected bmp hit at offset 0, got %+v", byType["bmp"])
	}
	if byType["png"].LocalOffset != 7 {
		t.Errorf("expected png hit at offset 7, got %+v", byType["png"])
	}
}

func TestScanChunkFindsOverlappingPatternOccurrences(t *testing.T) {
	// "AAA" matched against pattern "AA" should report both overlapping hits.
	s := New([]Pattern{{FileTypeID: "aa", PatternID: 1, Bytes: []byte("AA")}})
	data := []byte("AAA")
	c := chunk.ScanChunk{ID: 1, Start: 0, Length: 3, ValidLength: 3}

	hits, err := s.ScanChunk(c, data)
	if err != nil {
		t.Fatalf("ScanChunk failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 overlapping hits, got %d: %+v", len(hits), hits)
	}
	if hits[0].LocalOffset != 0 || hits[1].LocalOffset != 1 {
		t.Errorf("expected offsets 0 and 1, got %+v", hits)
	}
}

func TestScanChunkNoMatchesReturnsEmpty(t *testing.T) {
	s := New([]Pattern{bmpPattern()})
	data := []byte("no magic bytes here")
	c := chunk.ScanChunk{ID: 1, Start: 0, Length: int64(len(data)), ValidLength: int64(len(data))}

	hits, err := s.ScanChunk(c, data)
	if err != nil {
		t.Fatalf("ScanChunk failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %+v", hits)
	}
}

func TestScanChunkEmptyPatternSetNeverMatches(t *testing.T) {
	s := New(nil)
	data := []byte("BM anything")
	c := chunk.ScanChunk{ID: 1, Start: 0, Length: int64(len(data)), ValidLength: int64(len(data))}

	hits, err := s.ScanChunk(c, data)
	if err != nil {
		t.Fatalf("ScanChunk failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits with an empty pattern set, got %+v", hits)
	}
}

func TestGPUScannerFallsBackToCPUResults(t *testing.T) {
	patterns := []Pattern{bmpPattern()}
	cpu := NewCPUScanner(patterns)
	gpu := NewGPUScanner(patterns)

	if gpu.Name() != "gpu-fallback" {
		t.Errorf("expected gpu-fallback name, got %q", gpu.Name())
	}

	data := []byte("zzzBMzzzz")
	c := chunk.ScanChunk{ID: 3, Start: 0, Length: int64(len(data)), ValidLength: int64(len(data))}

	cpuHits, err := cpu.ScanChunk(c, data)
	if err != nil {
		t.Fatalf("cpu ScanChunk failed: %v", err)
	}
	gpuHits, err := gpu.ScanChunk(c, data)
	if err != nil {
		t.Fatalf("gpu ScanChunk failed: %v", err)
	}
	if len(cpuHits) != len(gpuHits) || len(gpuHits) != 1 {
		t.Fatalf("expected gpu fallback to match cpu results exactly, cpu=%+v gpu=%+v", cpuHits, gpuHits)
	}
	if cpuHits[0] != gpuHits[0] {
		t.Errorf("expected identical hits from cpu and gpu-fallback, got cpu=%+v gpu=%+v", cpuHits[0], gpuHits[0])
	}
}
