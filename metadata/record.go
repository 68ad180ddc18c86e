// Package metadata defines the carved-file record schema and the
// single-writer funnel that serializes it to a pluggable sink.
package metadata

import "time"

// CarvedFile is the handler output record: one per successfully or
// partially carved file.
type CarvedFile struct {
	RunID        string    `json:"run_id"`
	FileType     string    `json:"file_type"`
	RelativePath string    `json:"relative_path"`
	Extension    string    `json:"extension"`
	GlobalStart  int64     `json:"global_start"`
	GlobalEnd    int64     `json:"global_end"`
	Size         int64     `json:"size"`
	MD5          string    `json:"md5"`
	SHA256       string    `json:"sha256"`
	Validated    bool      `json:"validated"`
	Truncated    bool      `json:"truncated"`
	Errors       []string  `json:"errors,omitempty"`
	PatternID    int       `json:"pattern_id"`
	CarvedAt     time.Time `json:"carved_at"`

	// Timestamps holds any embedded timestamps a handler could recover and
	// normalize (e.g. "modified" from a ZIP local header, "created" from
	// an OLE property stream). Absent entirely when a handler extracts
	// none, rather than populated with zero times.
	Timestamps map[string]time.Time `json:"timestamps,omitempty"`
}

// EntropyRegion is an auxiliary per-chunk artefact: a byte range whose
// Shannon entropy crossed a configured threshold, suggesting compressed or
// encrypted content worth a closer look.
type EntropyRegion struct {
	RunID       string  `json:"run_id"`
	GlobalStart int64   `json:"global_start"`
	GlobalEnd   int64   `json:"global_end"`
	Entropy     float64 `json:"entropy"`
	WindowSize  int64   `json:"window_size"`
}

// StringArtefact is an auxiliary printable-string span extracted alongside
// the signature scan.
type StringArtefact struct {
	RunID       string `json:"run_id"`
	GlobalStart int64  `json:"global_start"`
	Length      int    `json:"length"`
	Encoding    string `json:"encoding"` // "ascii" or "utf16le"
	Value       string `json:"value"`
}

// RunSummary is emitted once, when the funnel observes its queue close.
type RunSummary struct {
	RunID           string    `json:"run_id"`
	EvidencePath    string    `json:"evidence_path"`
	EvidenceLen     int64     `json:"evidence_len"`
	BytesScanned    int64     `json:"bytes_scanned"`
	ChunksProcessed int64     `json:"chunks_processed"`
	HitsFound       int64     `json:"hits_found"`
	FilesCarved     int64     `json:"files_carved"`
	StringSpans     int64     `json:"string_spans"`
	Artefacts       int64     `json:"artefacts_extracted"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
