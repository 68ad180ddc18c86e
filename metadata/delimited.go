package metadata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// DelimitedConfig configures a columnar CSV-rows metadata backend: one
// row per carved file, auxiliary records are dropped (the format has no
// natural home for them; callers wanting entropy/string artefacts should
// use JSONLConfig instead).
type DelimitedConfig struct {
	Root string
}

func (c DelimitedConfig) Open() (Sink, error) {
	dir := filepath.Join(c.Root, "metadata")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("metadata: create %s: %w", dir, err)
	}
	f, err := os.Create(filepath.Join(dir, "carved_files.csv"))
	if err != nil {
		return nil, fmt.Errorf("metadata: create carved_files.csv: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(carvedFileHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("metadata: write csv header: %w", err)
	}
	return &DelimitedSink{file: f, w: w}, nil
}

var carvedFileHeader = []string{
	"run_id", "file_type", "relative_path", "extension",
	"global_start", "global_end", "size", "md5", "sha256",
	"validated", "truncated", "errors", "pattern_id", "carved_at",
}

// DelimitedSink writes CarvedFile records as CSV rows.
type DelimitedSink struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

func (s *DelimitedSink) WriteCarvedFile(rec CarvedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := []string{
		rec.RunID, rec.FileType, rec.RelativePath, rec.Extension,
		strconv.FormatInt(rec.GlobalStart, 10),
		strconv.FormatInt(rec.GlobalEnd, 10),
		strconv.FormatInt(rec.Size, 10),
		rec.MD5, rec.SHA256,
		strconv.FormatBool(rec.Validated),
		strconv.FormatBool(rec.Truncated),
		strings.Join(rec.Errors, "; "),
		strconv.Itoa(rec.PatternID),
		rec.CarvedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("metadata: write csv row: %w", err)
	}
	return nil
}

func (s *DelimitedSink) WriteEntropyRegion(EntropyRegion) error { return nil }

func (s *DelimitedSink) WriteStringArtefact(StringArtefact) error { return nil }

func (s *DelimitedSink) WriteRunSummary(rec RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	summaryPath := filepath.Join(filepath.Dir(s.file.Name()), "run_summary.csv")
	f, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("metadata: create run_summary.csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	_ = w.Write([]string{"run_id", "evidence_path", "evidence_len", "bytes_scanned", "chunks_processed", "hits_found", "files_carved", "string_spans", "artefacts_extracted"})
	_ = w.Write([]string{
		rec.RunID, rec.EvidencePath,
		strconv.FormatInt(rec.EvidenceLen, 10),
		strconv.FormatInt(rec.BytesScanned, 10),
		strconv.FormatInt(rec.ChunksProcessed, 10),
		strconv.FormatInt(rec.HitsFound, 10),
		strconv.FormatInt(rec.FilesCarved, 10),
		strconv.FormatInt(rec.StringSpans, 10),
		strconv.FormatInt(rec.Artefacts, 10),
	})
	w.Flush()
	return w.Error()
}

func (s *DelimitedSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	return s.w.Error()
}

func (s *DelimitedSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}
