package scenarios

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caseforge/filecarver/testutil"
)

// guarded runs fn and turns any panic into a returned error, so a scenario
// that genuinely crashes the pipeline is reported as a torture failure
// instead of taking the whole test binary down with it.
func guarded(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scenario panicked: %v", r)
		}
	}()
	return fn()
}

// buildMultiFileImage concatenates n recognizable fixtures back to back so
// a scenario has several independent carve targets to work with, not just
// one.
func buildMultiFileImage(n int) []byte {
	var buf []byte
	fixtures := [][]byte{
		testutil.MinimalBMP(),
		testutil.MinimalWAV(),
		testutil.MinimalPNG(),
		testutil.MinimalJPEG(),
		testutil.MinimalOLE(),
	}
	for i := 0; i < n; i++ {
		buf = append(buf, fixtures[i%len(fixtures)]...)
	}
	return buf
}

// verifyNoPanicArtifact confirms the run reached a clean close: if
// anything was ever carved, the metadata directory exists and its
// run_summary.jsonl is non-empty, meaning the funnel's terminal Close ran
// rather than the process dying mid-flush.
func verifyNoPanicArtifact(dir string) error {
	summaryPath := filepath.Join(dir, "out", "metadata", "run_summary.jsonl")
	info, err := os.Stat(summaryPath)
	if os.IsNotExist(err) {
		// Scan never opened the metadata sink at all, which only happens
		// if New itself failed, already surfaced by Execute's own error.
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return os.ErrInvalid
	}
	return nil
}
