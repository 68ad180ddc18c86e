// Package scenarios contains specific torture test scenarios.
package scenarios

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	carver "github.com/caseforge/filecarver"
	"github.com/caseforge/filecarver/evidence"
)

// TruncatedEvidence builds a synthetic image containing several carvable
// signatures, then chops it off at a random point before its declared end,
// simulating evidence captured from a disk that died mid-write or an
// acquisition that was interrupted. A carve handler encountering its
// declared length past the end of evidence must report ErrTruncated, not
// hang or corrupt memory.
type TruncatedEvidence struct {
	FileCount int
}

// NewTruncatedEvidence creates a new truncated-evidence scenario.
func NewTruncatedEvidence() *TruncatedEvidence {
	return &TruncatedEvidence{FileCount: 8}
}

func (t *TruncatedEvidence) Name() string { return "TruncatedEvidence" }

func (t *TruncatedEvidence) Execute(dir string) error {
	return guarded(func() error { return t.execute(dir) })
}

func (t *TruncatedEvidence) execute(dir string) error {
	full := buildMultiFileImage(t.FileCount)

	// #nosec G404 - weak random acceptable for test scenario randomization
	cut := len(full)/4 + rand.Intn(len(full)/2+1)
	truncated := full[:cut]

	evidencePath := filepath.Join(dir, "evidence.img")
	if err := os.WriteFile(evidencePath, truncated, 0o644); err != nil {
		return fmt.Errorf("write truncated evidence: %w", err)
	}

	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("make output dir: %w", err)
	}

	run, err := carver.New(
		carver.WithEvidence(evidence.FileConfig{Path: evidencePath}),
		carver.WithOutputDir(outDir),
		carver.WithChunking(4096, 256),
		carver.WithWorkers(2),
	)
	if err != nil {
		return fmt.Errorf("build run: %w", err)
	}

	_, err = run.Scan(context.Background())
	// A truncated file never aborts the run itself; individual carve
	// failures are logged and skipped, so Scan returning an error here
	// would itself be the bug under test.
	if err != nil {
		return fmt.Errorf("scan returned an error against truncated evidence: %w", err)
	}
	return nil
}

func (t *TruncatedEvidence) Verify(dir string) error {
	return verifyNoPanicArtifact(dir)
}
