package metadata

// Sink is a pluggable metadata backend. Funnel is the only writer; Sink
// implementations need not be safe for concurrent use.
type Sink interface {
	// WriteCarvedFile appends one carved-file record.
	WriteCarvedFile(rec CarvedFile) error

	// WriteEntropyRegion appends one auxiliary entropy-region record.
	WriteEntropyRegion(rec EntropyRegion) error

	// WriteStringArtefact appends one auxiliary string-artefact record.
	WriteStringArtefact(rec StringArtefact) error

	// WriteRunSummary appends the terminal run-summary record.
	WriteRunSummary(rec RunSummary) error

	// Flush persists any buffered records.
	Flush() error

	// Close flushes and releases any resources held by the sink.
	Close() error
}

// Config selects and configures a Sink implementation, mirroring
// evidence.Config's factory shape for the input side.
type Config interface {
	Open() (Sink, error)
}
