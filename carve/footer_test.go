package carve

import (
	"testing"

	"github.com/caseforge/filecarver/testutil"
)

func TestPNGHandlerCarvesMinimalPNG(t *testing.T) {
	png := testutil.MinimalPNG()
	src := newByteSource(append(append([]byte{}, png...), make([]byte, 64)...))

	h := NewPNGHandler("png", 8, 100*1024*1024)
	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "png"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a non-nil result for a valid PNG")
	}
	if res.Size != int64(len(png)) {
		t.Errorf("expected size %d (footer found exactly at the fixture's end), got %d", len(png), res.Size)
	}
	if !res.Validated || res.Truncated {
		t.Errorf("expected a validated, non-truncated result, got %+v", res)
	}
}

func TestJPEGHandlerFindsEOIMarker(t *testing.T) {
	jpeg := testutil.MinimalJPEG()
	src := newByteSource(append(append([]byte{}, jpeg...), make([]byte, 64)...))

	h := NewJPEGHandler("jpg", 8, 100*1024*1024)
	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "jpeg"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a non-nil result for a valid JPEG")
	}
	if res.Size != int64(len(jpeg)) {
		t.Errorf("expected size %d, got %d", len(jpeg), res.Size)
	}
}

func TestFooterHandlerRejectsWrongMagic(t *testing.T) {
	src := newByteSource(make([]byte, 64))
	h := NewPNGHandler("png", 8, 100*1024*1024)

	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "png"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit returned an unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("expected a nil result for data with no PNG magic, got %+v", res)
	}
}

func TestFooterHandlerTruncatedWhenFooterNeverFound(t *testing.T) {
	png := testutil.MinimalPNG()
	// Strip the trailing IEND chunk so the footer is never found before EOF.
	noFooter := png[:len(png)-8]
	src := newByteSource(noFooter)

	h := NewPNGHandler("png", 8, 100*1024*1024)
	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "png"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a non-nil, truncated result even without a footer")
	}
	if !res.Truncated || res.Validated {
		t.Errorf("expected a truncated, non-validated result, got %+v", res)
	}
}

func TestFooterHandlerRejectsBelowMinSize(t *testing.T) {
	png := testutil.MinimalPNG()
	src := newByteSource(append(append([]byte{}, png...), make([]byte, 64)...))

	h := NewPNGHandler("png", int64(len(png))+1, 100*1024*1024)
	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "png"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit failed: %v", err)
	}
	if res != nil {
		t.Errorf("expected a nil result when size is below min_size, got %+v", res)
	}
}

func TestFooterHandlerTruncatedByMaxSize(t *testing.T) {
	png := testutil.MinimalPNG()
	src := newByteSource(append(append([]byte{}, png...), make([]byte, 64)...))

	// Cap well below the fixture's own footer offset so max_size is hit first.
	h := NewPNGHandler("png", 1, 10)
	res, err := h.ProcessHit(Hit{GlobalOffset: 0, FileTypeID: "png"}, Context{Evidence: src, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("ProcessHit failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a non-nil result even when capped by max_size")
	}
	if !res.Truncated || res.Validated {
		t.Errorf("expected a truncated, non-validated result, got %+v", res)
	}
	if res.Size != 10 {
		t.Errorf("expected size capped to max_size 10, got %d", res.Size)
	}
}
