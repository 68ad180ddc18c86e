package metadata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	farm "github.com/dgryski/go-farm"
)

// compactKey identifies a carved-file record for deduplication across
// compacted inputs, mirroring the pipeline's own (global_start, file_type)
// dedup key at the metadata layer: a resumed run's second export can
// legitimately re-describe a file already recorded by the first.
type compactKey struct {
	globalStart int64
	fileType    string
}

// Compactor merges multiple carved_files.jsonl exports, typically the
// output of a checkpointed run resumed one or more times, into a single
// deduplicated file ordered by first-seen line.
type Compactor struct {
	seen   map[compactKey]struct{}
	hashes map[uint64]uint64 // xxhash -> farm hash of each kept line; recorded only, never used to drop a record
}

// NewCompactor creates an empty Compactor.
func NewCompactor() *Compactor {
	return &Compactor{
		seen:   make(map[compactKey]struct{}),
		hashes: make(map[uint64]uint64),
	}
}

// CompactFiles reads each input JSONL file in order and writes every
// record not already seen (by (global_start, file_type)) to outPath.
// Returns the number of records written and the number skipped as
// duplicates.
func (c *Compactor) CompactFiles(inputs []string, outPath string) (written, skipped int, err error) {
	out, err := os.Create(outPath)
	if err != nil {
		return 0, 0, fmt.Errorf("metadata: create %s: %w", outPath, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	for _, path := range inputs {
		n, s, ferr := c.compactOne(path, w)
		written += n
		skipped += s
		if ferr != nil {
			return written, skipped, ferr
		}
	}
	return written, skipped, w.Flush()
}

func (c *Compactor) compactOne(path string, w *bufio.Writer) (written, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("metadata: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var rec CarvedFile
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		key := compactKey{globalStart: rec.GlobalStart, fileType: rec.FileType}
		if _, ok := c.seen[key]; ok {
			skipped++
			continue
		}
		xh := lineHash(line)
		fh := farm.Hash64(line)
		if prev, ok := c.hashes[xh]; ok && prev != fh {
			// xxhash collision across distinct records: fall through and keep
			// both rather than risk dropping a real carve.
			_ = prev
		}
		c.hashes[xh] = fh
		c.seen[key] = struct{}{}

		if _, err := w.Write(line); err != nil {
			return written, skipped, fmt.Errorf("metadata: write compacted line: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return written, skipped, err
		}
		written++
	}
	if err := scanner.Err(); err != nil {
		return written, skipped, fmt.Errorf("metadata: scan %s: %w", path, err)
	}
	return written, skipped, nil
}
