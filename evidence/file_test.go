package evidence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTempImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.dd")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestFileConfigOpenReportsLenAndName(t *testing.T) {
	data := []byte("0123456789")
	path := writeTempImage(t, data)

	src, err := FileConfig{Path: path}.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if src.Len() != int64(len(data)) {
		t.Errorf("expected Len() %d, got %d", len(data), src.Len())
	}
	if src.Name() != path {
		t.Errorf("expected Name() %q, got %q", path, src.Name())
	}
}

func TestFileConfigOpenMissingPathErrors(t *testing.T) {
	_, err := FileConfig{Path: filepath.Join(t.TempDir(), "missing.dd")}.Open()
	if err == nil {
		t.Fatal("expected an error opening a nonexistent path")
	}
}

func TestNewFileEquivalentToFileConfig(t *testing.T) {
	data := []byte("abcdefgh")
	path := writeTempImage(t, data)

	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	if f.Len() != int64(len(data)) {
		t.Errorf("expected Len() %d, got %d", len(data), f.Len())
	}
}

func TestFileReadAtMidRange(t *testing.T) {
	data := []byte("the quick brown fox")
	path := writeTempImage(t, data)
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 4)
	if err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if n != 5 || string(buf) != "quick" {
		t.Errorf("expected %q, got %q (n=%d)", "quick", string(buf[:n]), n)
	}
}

func TestFileReadAtPastEndOfEvidenceReturnsZero(t *testing.T) {
	data := []byte("short")
	path := writeTempImage(t, data)
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 10)
	n, err := f.ReadAt(buf, 100)
	if err != nil {
		t.Fatalf("expected no error reading past end-of-evidence, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected n=0 reading past end-of-evidence, got %d", n)
	}
}

func TestFileReadAtShortReadAtEOFNotAnError(t *testing.T) {
	data := []byte("12345")
	path := writeTempImage(t, data)
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 10)
	n, err := f.ReadAt(buf, 2)
	if err != nil {
		t.Fatalf("expected a short read at EOF to not be an error, got %v", err)
	}
	if n != 3 {
		t.Errorf("expected short read of 3 bytes, got %d", n)
	}
}

func TestFileReadAtAfterCloseReturnsError(t *testing.T) {
	data := []byte("closed source")
	path := writeTempImage(t, data)
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	buf := make([]byte, 4)
	_, err = f.ReadAt(buf, 0)
	if err == nil {
		t.Fatal("expected an error reading from a closed File")
	}
	var srcErr *Error
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected an *Error, got %T: %v", err, err)
	}
	if srcErr.Kind != ErrIO {
		t.Errorf("expected ErrIO, got %v", srcErr.Kind)
	}
}

func TestFileCloseIsIdempotent(t *testing.T) {
	data := []byte("idempotent")
	path := writeTempImage(t, data)
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}

func TestReadFullAtLoopsAcrossShortReads(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz")
	path := writeTempImage(t, data)
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 10)
	n, err := ReadFullAt(f, buf, 5)
	if err != nil {
		t.Fatalf("ReadFullAt failed: %v", err)
	}
	if n != 10 || string(buf) != "fghijklmno" {
		t.Errorf("expected %q, got %q (n=%d)", "fghijklmno", string(buf[:n]), n)
	}
}

func TestReadFullAtStopsShortAtEndOfEvidence(t *testing.T) {
	data := []byte("12345")
	path := writeTempImage(t, data)
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 10)
	n, err := ReadFullAt(f, buf, 0)
	if err != nil {
		t.Fatalf("expected no error on a partial ReadFullAt at end-of-evidence, got %v", err)
	}
	if n != 5 {
		t.Errorf("expected n=5, got %d", n)
	}
}
