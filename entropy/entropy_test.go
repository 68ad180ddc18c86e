package entropy

import (
	"bytes"
	"testing"
)

// lowEntropyWindow is all zero bytes: Shannon entropy 0.
func lowEntropyWindow(n int) []byte { return make([]byte, n) }

// highEntropyWindow cycles through all 256 byte values, giving it the
// maximum possible Shannon entropy (8 bits) for any multiple-of-256 length.
func highEntropyWindow(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestDetectNoRegionsBelowThreshold(t *testing.T) {
	data := lowEntropyWindow(64)
	regions := Detect("run-1", 0, data, 16, 4.0)
	if regions != nil {
		t.Errorf("expected no regions for all-zero data, got %+v", regions)
	}
}

func TestDetectSingleRegionAboveThreshold(t *testing.T) {
	data := highEntropyWindow(256)
	regions := Detect("run-1", 0, data, 256, 4.0)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d: %+v", len(regions), regions)
	}
	r := regions[0]
	if r.GlobalStart != 0 || r.GlobalEnd != 255 {
		t.Errorf("expected region [0,255], got [%d,%d]", r.GlobalStart, r.GlobalEnd)
	}
	if r.Entropy < 7.9 {
		t.Errorf("expected near-maximal entropy, got %v", r.Entropy)
	}
}

func TestDetectMergesAdjacentHighEntropyWindows(t *testing.T) {
	var data []byte
	data = append(data, highEntropyWindow(128)...)
	data = append(data, highEntropyWindow(128)...)
	regions := Detect("run-1", 1000, data, 128, 4.0)
	if len(regions) != 1 {
		t.Fatalf("expected adjacent high-entropy windows to merge into 1 region, got %d: %+v", len(regions), regions)
	}
	r := regions[0]
	if r.GlobalStart != 1000 || r.GlobalEnd != 1000+255 {
		t.Errorf("expected merged region [1000,1255], got [%d,%d]", r.GlobalStart, r.GlobalEnd)
	}
}

func TestDetectSeparatesNonAdjacentHighEntropyWindows(t *testing.T) {
	var data []byte
	data = append(data, highEntropyWindow(64)...)
	data = append(data, lowEntropyWindow(64)...)
	data = append(data, highEntropyWindow(64)...)
	regions := Detect("run-1", 0, data, 64, 4.0)
	if len(regions) != 2 {
		t.Fatalf("expected 2 separate regions with a low-entropy gap, got %d: %+v", len(regions), regions)
	}
}

func TestDetectOpenRegionAtEndOfDataIsClosed(t *testing.T) {
	var data []byte
	data = append(data, lowEntropyWindow(64)...)
	data = append(data, highEntropyWindow(64)...)
	regions := Detect("run-1", 0, data, 64, 4.0)
	if len(regions) != 1 {
		t.Fatalf("expected 1 trailing region, got %d: %+v", len(regions), regions)
	}
	if regions[0].GlobalStart != 64 || regions[0].GlobalEnd != 127 {
		t.Errorf("expected region [64,127], got [%d,%d]", regions[0].GlobalStart, regions[0].GlobalEnd)
	}
}

func TestDetectDataShorterThanWindowReturnsNil(t *testing.T) {
	regions := Detect("run-1", 0, make([]byte, 4), 16, 1.0)
	if regions != nil {
		t.Errorf("expected nil when data is shorter than the window, got %+v", regions)
	}
}

func TestDetectZeroWindowSizeReturnsNil(t *testing.T) {
	regions := Detect("run-1", 0, make([]byte, 64), 0, 1.0)
	if regions != nil {
		t.Errorf("expected nil for a zero window size, got %+v", regions)
	}
}

func TestDetectRecordsMaxEntropyAcrossMergedWindows(t *testing.T) {
	low4bit := bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x03}, 16) // 64 bytes, entropy 2 bits
	var data []byte
	data = append(data, low4bit...)
	data = append(data, highEntropyWindow(64)...)
	regions := Detect("run-1", 0, data, 64, 1.5)
	if len(regions) != 1 {
		t.Fatalf("expected 1 merged region, got %d: %+v", len(regions), regions)
	}
	// 64 distinct bytes in a 64-byte window give log2(64) = 6 bits, the
	// highest window; the low window contributes only 2 bits.
	if regions[0].Entropy < 5.9 {
		t.Errorf("expected the merged region's entropy to reflect its highest window, got %v", regions[0].Entropy)
	}
}
