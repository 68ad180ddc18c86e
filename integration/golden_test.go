// Package integration exercises the full carver pipeline end to end
// against the golden evidence scenarios: minimal files recognized and
// carved, malformed headers rejected, chunk-boundary duplicates
// deduplicated, and the carve-count cap enforced.
package integration

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	carver "github.com/caseforge/filecarver"
	"github.com/caseforge/filecarver/config"
	"github.com/caseforge/filecarver/evidence"
	"github.com/caseforge/filecarver/metadata"
	"github.com/caseforge/filecarver/testutil"
)

// pngOnlyCatalog matches only the PNG signature with a minimum size small
// enough to accept testutil.MinimalPNG(), unlike the built-in catalog's
// production-oriented 67-byte floor.
func pngOnlyCatalog() *config.CatalogDoc {
	return &config.CatalogDoc{
		FileTypes: []config.FileTypeDoc{
			{
				ID: "png", Extension: "png", Validator: "png",
				Patterns: []config.PatternDoc{{PatternID: 0, Hex: "89504e470d0a1a0a"}},
				MinSize:  8, MaxSize: 100 * 1024 * 1024,
			},
		},
	}
}

// jpegOnlyCatalog matches only the JPEG signature with a minimum size
// small enough to accept testutil.MinimalJPEG(), unlike the built-in
// catalog's production-oriented 128-byte floor.
func jpegOnlyCatalog() *config.CatalogDoc {
	return &config.CatalogDoc{
		FileTypes: []config.FileTypeDoc{
			{
				ID: "jpeg", Extension: "jpg", Validator: "jpeg",
				Patterns: []config.PatternDoc{{PatternID: 0, Hex: "ffd8ff"}},
				MinSize:  8, MaxSize: 100 * 1024 * 1024,
			},
		},
	}
}

// memSink is an in-process metadata.Sink that captures every record
// in memory instead of writing to disk, so a test can assert directly on
// what the pipeline emitted without re-parsing JSONL.
type memSink struct {
	carved  []metadata.CarvedFile
	entropy []metadata.EntropyRegion
	strings []metadata.StringArtefact
	summary metadata.RunSummary
}

func (s *memSink) WriteCarvedFile(rec metadata.CarvedFile) error {
	s.carved = append(s.carved, rec)
	return nil
}
func (s *memSink) WriteEntropyRegion(rec metadata.EntropyRegion) error {
	s.entropy = append(s.entropy, rec)
	return nil
}
func (s *memSink) WriteStringArtefact(rec metadata.StringArtefact) error {
	s.strings = append(s.strings, rec)
	return nil
}
func (s *memSink) WriteRunSummary(rec metadata.RunSummary) error {
	s.summary = rec
	return nil
}
func (s *memSink) Flush() error { return nil }
func (s *memSink) Close() error { return nil }

type memSinkConfig struct{ sink *memSink }

func (c memSinkConfig) Open() (metadata.Sink, error) { return c.sink, nil }

// runGolden writes evidenceBytes to a temp file and scans it with the
// given options, returning the captured sink so the caller can assert on
// emitted records.
func runGolden(t *testing.T, evidenceBytes []byte, opts ...carver.Option) *memSink {
	t.Helper()
	dir := t.TempDir()
	evidencePath := filepath.Join(dir, "evidence.img")
	require.NoError(t, os.WriteFile(evidencePath, evidenceBytes, 0o644))

	sink := &memSink{}
	allOpts := append([]carver.Option{
		carver.WithEvidence(evidence.FileConfig{Path: evidencePath}),
		carver.WithOutputDir(dir),
		carver.WithMetadataSink(memSinkConfig{sink: sink}),
	}, opts...)

	run, err := carver.New(allOpts...)
	require.NoError(t, err)

	_, err = run.Scan(context.Background())
	require.NoError(t, err)
	return sink
}

// E1: a minimal 58-byte BMP followed by zero padding carves as exactly one
// validated bmp record whose hashes match the source bytes.
func TestGoldenE1MinimalBMPCarving(t *testing.T) {
	bmp := testutil.MinimalBMP()
	evidenceBytes := append(append([]byte{}, bmp...), make([]byte, 256)...)

	sink := runGolden(t, evidenceBytes)

	require.Len(t, sink.carved, 1)
	rec := sink.carved[0]
	assert.Equal(t, "bmp", rec.FileType)
	assert.EqualValues(t, len(bmp), rec.Size)
	assert.True(t, rec.Validated)

	sum256 := sha256.Sum256(bmp)
	sumMD5 := md5.Sum(bmp)
	assert.Equal(t, hex.EncodeToString(sum256[:]), rec.SHA256)
	assert.Equal(t, hex.EncodeToString(sumMD5[:]), rec.MD5)
}

// E2: a BMP whose DIB header size field names an unrecognized value must
// be rejected before any bytes stream out.
func TestGoldenE2DIBSizeRejection(t *testing.T) {
	evidenceBytes := testutil.RejectedBMP()

	sink := runGolden(t, evidenceBytes)

	assert.Empty(t, sink.carved)
}

// E3: RIFF/WAVE sizing is read from the chunk size field, not assumed from
// the surrounding evidence length.
func TestGoldenE3RIFFWAVESizing(t *testing.T) {
	wav := testutil.MinimalWAV()

	sink := runGolden(t, wav)

	require.Len(t, sink.carved, 1)
	assert.Equal(t, "wav", sink.carved[0].FileType)
	assert.EqualValues(t, 108, sink.carved[0].Size)
}

// E4: a signature straddling the boundary between two chunks must be
// carved exactly once. The overlap window exists precisely so the second
// chunk's duplicate hit gets suppressed by dedup.
func TestGoldenE4OverlapStraddleDeduplication(t *testing.T) {
	const chunkSize = 4096
	const overlap = 64

	png := testutil.MinimalPNG()
	evidenceBytes := make([]byte, chunkSize+4096)
	// Placed right at the chunk boundary: chunk 0's trailing overlap window
	// and chunk 1's own leading bytes both cover this offset, so both
	// chunks independently find the same signature.
	copy(evidenceBytes[chunkSize:], png)

	sink := runGolden(t, evidenceBytes,
		carver.WithChunking(chunkSize, overlap),
		carver.WithCatalog(pngOnlyCatalog()),
	)

	pngHits := 0
	for _, rec := range sink.carved {
		if rec.FileType == "png" {
			pngHits++
		}
	}
	assert.Equal(t, 1, pngHits, "expected the straddling PNG to be carved exactly once")
}

// E5: a carve count cap must be enforced exactly, even though more
// signature hits exist than the cap allows.
func TestGoldenE5MaxFilesCap(t *testing.T) {
	jpeg := testutil.MinimalJPEG()
	var evidenceBytes []byte
	for i := 0; i < 32; i++ {
		evidenceBytes = append(evidenceBytes, jpeg...)
		evidenceBytes = append(evidenceBytes, make([]byte, 256)...) // keep hits from overlapping
	}

	sink := runGolden(t, evidenceBytes,
		carver.WithCaps(0, 0, 5),
		carver.WithWorkers(4),
		carver.WithCatalog(jpegOnlyCatalog()),
	)

	assert.Len(t, sink.carved, 5)
	assert.GreaterOrEqual(t, sink.summary.HitsFound, int64(5))
}

// E6: a 512-byte OLE/CFB v3 header carves as a validated record of at
// least 512 bytes.
func TestGoldenE6OLEHeader(t *testing.T) {
	ole := testutil.MinimalOLE()
	// The handler estimates container size from the DIFAT's highest
	// referenced sector, which can extend past the 512-byte header itself;
	// pad so the estimate fits entirely within evidence and the record
	// comes back fully validated rather than truncated.
	evidenceBytes := append(append([]byte{}, ole...), make([]byte, 4096)...)

	sink := runGolden(t, evidenceBytes)

	require.Len(t, sink.carved, 1)
	assert.Equal(t, "ole", sink.carved[0].FileType)
	assert.True(t, sink.carved[0].Validated)
	assert.GreaterOrEqual(t, sink.carved[0].Size, int64(512))
}

// sanity-check the synthetic multi-format image fixture never accidentally
// encodes its own file-size field as 0, which would make every test above
// tautologically pass on an empty carve.
func TestGoldenFixturesDeclareNonZeroSize(t *testing.T) {
	bmp := testutil.MinimalBMP()
	require.True(t, len(bmp) > 14)
	fileSize := binary.LittleEndian.Uint32(bmp[2:6])
	assert.NotZero(t, fileSize)
}
