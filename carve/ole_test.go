package carve

import (
	"testing"

	"github.com/caseforge/filecarver/testutil"
)

func TestOLEHandlerCarvesWithEnoughPadding(t *testing.T) {
	ole := testutil.MinimalOLE()
	// DIFAT[0]=1 estimates a 2560-byte container (512 header + (1+1)*2 sectors
	// of 512 bytes each); pad comfortably past that so nothing truncates.
	src := newByteSource(append(append([]byte{}, ole...), make([]byte, 4096)...))

	h := NewOLEHandler("doc", 512, 500*1024*1024)
	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "ole"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a non-nil result for a valid OLE header")
	}
	if res.Size < 512 {
		t.Errorf("expected size >= 512, got %d", res.Size)
	}
	if !res.Validated || res.Truncated {
		t.Errorf("expected a validated, non-truncated result given sufficient padding, got %+v", res)
	}
}

func TestOLEHandlerTruncatedWithoutEnoughPadding(t *testing.T) {
	ole := testutil.MinimalOLE() // bare 512 bytes, no padding past the header
	src := newByteSource(ole)

	h := NewOLEHandler("doc", 512, 500*1024*1024)
	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "ole"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a non-nil result even when the estimate runs past evidence")
	}
	if !res.Truncated || res.Validated {
		t.Errorf("expected a truncated, non-validated result without padding, got %+v", res)
	}
}

func TestOLEHandlerRejectsWrongSignature(t *testing.T) {
	src := newByteSource(make([]byte, 512))
	h := NewOLEHandler("doc", 512, 500*1024*1024)
	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "ole"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit returned an unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("expected a nil result for data with no OLE signature, got %+v", res)
	}
}

func TestOLEHandlerRejectsWrongSectorPowerForVersion(t *testing.T) {
	ole := testutil.MinimalOLE()
	// Declare major version 3 but an inconsistent sector shift (12, which
	// only version 4 uses).
	ole[30], ole[31] = 12, 0
	src := newByteSource(append(append([]byte{}, ole...), make([]byte, 8192)...))

	h := NewOLEHandler("doc", 512, 500*1024*1024)
	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "ole"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit returned an unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("expected a nil result for a version/sector-shift mismatch, got %+v", res)
	}
}
