package metadata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// JSONLGzipConfig configures a metadata backend identical in schema to
// JSONLConfig but with each record file gzip-compressed, for runs that
// produce metadata volumes worth shrinking before archival.
type JSONLGzipConfig struct {
	Root  string
	Level int // compress/gzip level; 0 uses gzip.DefaultCompression
}

func (c JSONLGzipConfig) Open() (Sink, error) {
	dir := filepath.Join(c.Root, "metadata")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("metadata: create %s: %w", dir, err)
	}
	level := c.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	names := []string{"carved_files.jsonl.gz", "entropy_regions.jsonl.gz", "string_artefacts.jsonl.gz", "run_summary.jsonl.gz"}
	files := make([]*os.File, 0, len(names))
	gzWriters := make([]*gzip.Writer, 0, len(names))
	for _, name := range names {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			for i, opened := range files {
				_ = gzWriters[i].Close()
				_ = opened.Close()
			}
			return nil, fmt.Errorf("metadata: create %s: %w", name, err)
		}
		gw, err := gzip.NewWriterLevel(f, level)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("metadata: init gzip writer for %s: %w", name, err)
		}
		files = append(files, f)
		gzWriters = append(gzWriters, gw)
	}

	return &JSONLGzipSink{
		files: files,
		gz:    gzWriters,
		bw: [4]*bufio.Writer{
			bufio.NewWriter(gzWriters[0]),
			bufio.NewWriter(gzWriters[1]),
			bufio.NewWriter(gzWriters[2]),
			bufio.NewWriter(gzWriters[3]),
		},
	}, nil
}

// JSONLGzipSink writes the same four record streams as JSONLSink, each
// through a gzip.Writer.
type JSONLGzipSink struct {
	mu    sync.Mutex
	files []*os.File
	gz    []*gzip.Writer
	bw    [4]*bufio.Writer
}

const (
	idxCarvedFile = iota
	idxEntropy
	idxStrings
	idxRunSummary
)

func (s *JSONLGzipSink) writeLine(idx int, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.NewEncoder(s.bw[idx]).Encode(v); err != nil {
		return fmt.Errorf("metadata: encode record: %w", err)
	}
	return nil
}

func (s *JSONLGzipSink) WriteCarvedFile(rec CarvedFile) error {
	return s.writeLine(idxCarvedFile, rec)
}

func (s *JSONLGzipSink) WriteEntropyRegion(rec EntropyRegion) error {
	return s.writeLine(idxEntropy, rec)
}

func (s *JSONLGzipSink) WriteStringArtefact(rec StringArtefact) error {
	return s.writeLine(idxStrings, rec)
}

func (s *JSONLGzipSink) WriteRunSummary(rec RunSummary) error {
	return s.writeLine(idxRunSummary, rec)
}

func (s *JSONLGzipSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bw {
		if err := s.bw[i].Flush(); err != nil {
			return err
		}
		if err := s.gz[i].Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONLGzipSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	for i := range s.gz {
		if err := s.gz[i].Close(); err != nil {
			return err
		}
		if err := s.files[i].Close(); err != nil {
			return err
		}
	}
	return nil
}
