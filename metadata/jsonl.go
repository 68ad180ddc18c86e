package metadata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONLConfig configures the reference metadata backend: one
// line-delimited JSON file per record kind under <root>/metadata/.
type JSONLConfig struct {
	Root string
}

func (c JSONLConfig) Open() (Sink, error) {
	dir := filepath.Join(c.Root, "metadata")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("metadata: create %s: %w", dir, err)
	}

	files, err := openWriters(dir, "carved_files.jsonl", "entropy_regions.jsonl", "string_artefacts.jsonl", "run_summary.jsonl")
	if err != nil {
		return nil, err
	}

	return &JSONLSink{
		carvedFile:  files[0],
		entropy:     files[1],
		strings:     files[2],
		runSummary:  files[3],
		carvedW:     bufio.NewWriter(files[0]),
		entropyW:    bufio.NewWriter(files[1]),
		stringsW:    bufio.NewWriter(files[2]),
		runSummaryW: bufio.NewWriter(files[3]),
	}, nil
}

func openWriters(dir string, names ...string) ([]*os.File, error) {
	files := make([]*os.File, 0, len(names))
	for _, name := range names {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			for _, opened := range files {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("metadata: create %s: %w", name, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// JSONLSink is the reference metadata backend used in tests: one
// line-delimited JSON document per record, one file per record kind.
type JSONLSink struct {
	mu sync.Mutex

	carvedFile, entropy, strings, runSummary *os.File
	carvedW, entropyW, stringsW, runSummaryW *bufio.Writer
}

func (s *JSONLSink) writeLine(w *bufio.Writer, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("metadata: encode record: %w", err)
	}
	return nil
}

func (s *JSONLSink) WriteCarvedFile(rec CarvedFile) error {
	return s.writeLine(s.carvedW, rec)
}

func (s *JSONLSink) WriteEntropyRegion(rec EntropyRegion) error {
	return s.writeLine(s.entropyW, rec)
}

func (s *JSONLSink) WriteStringArtefact(rec StringArtefact) error {
	return s.writeLine(s.stringsW, rec)
}

func (s *JSONLSink) WriteRunSummary(rec RunSummary) error {
	return s.writeLine(s.runSummaryW, rec)
}

func (s *JSONLSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range []*bufio.Writer{s.carvedW, s.entropyW, s.stringsW, s.runSummaryW} {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (s *JSONLSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	for _, f := range []*os.File{s.carvedFile, s.entropy, s.strings, s.runSummary} {
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
