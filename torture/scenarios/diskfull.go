package scenarios

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	carver "github.com/caseforge/filecarver"
	"github.com/caseforge/filecarver/evidence"
)

// UnwritableOutput makes the output directory read-only before scanning a
// perfectly valid image, simulating a full or permission-denied output
// volume. A carve handler's output-side write failures must surface as a
// per-hit error (skip and continue), never as a run-wide crash.
type UnwritableOutput struct {
	FileCount int
}

// NewUnwritableOutput creates a new unwritable-output scenario.
func NewUnwritableOutput() *UnwritableOutput {
	return &UnwritableOutput{FileCount: 8}
}

func (u *UnwritableOutput) Name() string { return "UnwritableOutput" }

func (u *UnwritableOutput) Execute(dir string) error {
	return guarded(func() error { return u.execute(dir) })
}

func (u *UnwritableOutput) execute(dir string) error {
	buf := buildMultiFileImage(u.FileCount)

	evidencePath := filepath.Join(dir, "evidence.img")
	if err := os.WriteFile(evidencePath, buf, 0o644); err != nil {
		return fmt.Errorf("write evidence: %w", err)
	}

	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o555); err != nil {
		return fmt.Errorf("make read-only output dir: %w", err)
	}
	defer func() { _ = os.Chmod(outDir, 0o755) }() // restore so the torture harness can clean dir up

	run, err := carver.New(
		carver.WithEvidence(evidence.FileConfig{Path: evidencePath}),
		carver.WithOutputDir(outDir),
		carver.WithChunking(4096, 256),
		carver.WithWorkers(2),
	)
	if err != nil {
		// New needs write access to create the metadata directory; on a
		// strictly enforced read-only dir it fails here instead of during
		// carving, which is the expected outcome on this scenario, not a
		// bug; only a panic is.
		return nil
	}

	// Every carve attempt will fail to write its output file; a run-wide
	// error from Scan itself would indicate the per-hit failure wasn't
	// being contained the way the pipeline is supposed to.
	if _, err := run.Scan(context.Background()); err != nil {
		return fmt.Errorf("scan returned an error against an unwritable output dir: %w", err)
	}
	return nil
}

func (u *UnwritableOutput) Verify(dir string) error {
	return verifyNoPanicArtifact(dir)
}
