package metadata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// IndexEntry is a fast-lookup pointer into a JSONL metadata file: the byte
// offset and length of one CarvedFile record's line.
type IndexEntry struct {
	FileType    string
	GlobalStart int64
	LineOffset  int64
	LineLength  int64
}

// Index is an in-memory offset index over a carved_files.jsonl file, keyed
// by file type so a query tool can seek straight to the matching lines
// without a full linear scan.
type Index struct {
	byType map[string][]IndexEntry
}

// BuildIndex scans a carved_files.jsonl file once and records the byte
// range of each line, bucketed by file_type. Lines that do not parse as a
// CarvedFile are skipped. It computes no line hash; Compactor reads its
// inputs in its own pass.
func BuildIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: open %s: %w", path, err)
	}
	defer f.Close()

	idx := &Index{byType: make(map[string][]IndexEntry)}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var offset int64
	for scanner.Scan() {
		line := scanner.Bytes()
		var rec CarvedFile
		if err := json.Unmarshal(line, &rec); err != nil {
			offset += int64(len(line)) + 1
			continue
		}
		idx.byType[rec.FileType] = append(idx.byType[rec.FileType], IndexEntry{
			FileType:    rec.FileType,
			GlobalStart: rec.GlobalStart,
			LineOffset:  offset,
			LineLength:  int64(len(line)),
		})
		offset += int64(len(line)) + 1
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("metadata: scan %s: %w", path, err)
	}

	for _, entries := range idx.byType {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].GlobalStart < entries[j].GlobalStart
		})
	}

	return idx, nil
}

// FileTypes returns the file types present in the index, sorted.
func (idx *Index) FileTypes() []string {
	types := make([]string, 0, len(idx.byType))
	for t := range idx.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Lookup returns the index entries for a file type, ordered by GlobalStart.
func (idx *Index) Lookup(fileType string) []IndexEntry {
	return idx.byType[fileType]
}

// lineHash returns a fast fingerprint of a record line. Compactor records
// it for every line it keeps, but decides duplicates by (global_start,
// file_type) alone.
func lineHash(line []byte) uint64 {
	return xxhash.Sum64(line)
}
