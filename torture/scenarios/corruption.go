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

// RandomCorruption flips a handful of random bytes across an otherwise
// valid multi-file image, simulating sector-level media corruption. Unlike
// TruncatedEvidence, the file stays the declared length; corruption can
// land in a signature (turning a hit into a non-match) or inside a carved
// region's structural fields (turning a would-be carve into a rejected or
// truncated one).
type RandomCorruption struct {
	FileCount int
	FlipCount int
}

// NewRandomCorruption creates a new random-corruption scenario.
func NewRandomCorruption() *RandomCorruption {
	return &RandomCorruption{FileCount: 8, FlipCount: 12}
}

func (r *RandomCorruption) Name() string { return "RandomCorruption" }

func (r *RandomCorruption) Execute(dir string) error {
	return guarded(func() error { return r.execute(dir) })
}

func (r *RandomCorruption) execute(dir string) error {
	buf := buildMultiFileImage(r.FileCount)

	for i := 0; i < r.FlipCount; i++ {
		// #nosec G404 - weak random acceptable for test scenario randomization
		pos := rand.Intn(len(buf))
		// #nosec G404 - weak random acceptable for test scenario randomization
		buf[pos] ^= byte(1 << uint(rand.Intn(8)))
	}

	evidencePath := filepath.Join(dir, "evidence.img")
	if err := os.WriteFile(evidencePath, buf, 0o644); err != nil {
		return fmt.Errorf("write corrupted evidence: %w", err)
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

	if _, err := run.Scan(context.Background()); err != nil {
		return fmt.Errorf("scan returned an error against corrupted evidence: %w", err)
	}
	return nil
}

func (r *RandomCorruption) Verify(dir string) error {
	return verifyNoPanicArtifact(dir)
}
