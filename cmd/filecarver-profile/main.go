// Package main provides CPU profiling for a synthetic filecarver run: it
// carves a small synthetic evidence image under pprof instead of driving
// real evidence, so a profile can be captured without a case file handy.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	carver "github.com/caseforge/filecarver"
	"github.com/caseforge/filecarver/evidence"
	"github.com/caseforge/filecarver/testutil"
)

func main() {
	f, err := os.Create("cpu.prof")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()

	if err := pprof.StartCPUProfile(f); err != nil {
		panic(err)
	}
	defer pprof.StopCPUProfile()

	tmpDir, err := os.MkdirTemp("", "filecarver-profile-")
	if err != nil {
		panic(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	imagePath := filepath.Join(tmpDir, "evidence.img")
	if err := testutil.WriteSyntheticImage(imagePath, 64*1024*1024); err != nil {
		panic(err)
	}

	run, err := carver.New(
		carver.WithEvidence(evidence.FileConfig{Path: imagePath}),
		carver.WithOutputDir(filepath.Join(tmpDir, "out")),
		carver.WithWorkers(4),
	)
	if err != nil {
		panic(err)
	}

	summary, err := run.Scan(context.Background())
	if err != nil {
		panic(err)
	}

	fmt.Printf("carved %d files from %d bytes scanned\n", summary.FilesCarved, summary.BytesScanned)
}
