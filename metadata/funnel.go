package metadata

import (
	"sync/atomic"
	"time"

	"github.com/caseforge/filecarver/internal/logger"
	"github.com/caseforge/filecarver/monitoring"
)

// record is the funnel's internal envelope: exactly one of its fields is
// populated, discriminated by kind.
type recordKind int

const (
	kindCarvedFile recordKind = iota
	kindEntropyRegion
	kindStringArtefact
)

type record struct {
	kind     recordKind
	carved   CarvedFile
	entropy  EntropyRegion
	artefact StringArtefact
}

// Funnel is the single consumer of carved-file and auxiliary records. All
// pipeline stages enqueue to it; no ordering guarantee is made beyond
// arrival order at the queue.
type Funnel struct {
	sink    Sink
	queue   chan record
	done    chan struct{}
	entropy atomic.Int64
	strings atomic.Int64
}

// NewFunnel starts the funnel's consumer goroutine against sink, with a
// queue capacity scaled to the worker count so a burst of carved files
// doesn't stall the carve workers waiting on the consumer.
func NewFunnel(sink Sink, queueCapacity int) *Funnel {
	if queueCapacity < 1 {
		queueCapacity = 1
	}
	f := &Funnel{
		sink:  sink,
		queue: make(chan record, queueCapacity),
		done:  make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *Funnel) run() {
	defer close(f.done)
	for rec := range f.queue {
		var err error
		switch rec.kind {
		case kindCarvedFile:
			err = f.sink.WriteCarvedFile(rec.carved)
		case kindEntropyRegion:
			f.entropy.Add(1)
			err = f.sink.WriteEntropyRegion(rec.entropy)
		case kindStringArtefact:
			f.strings.Add(1)
			err = f.sink.WriteStringArtefact(rec.artefact)
		}
		if err != nil {
			logger.Log.Warn("metadata: funnel write failed: {error}", err)
		}
	}
}

// SubmitCarvedFile enqueues a carved-file record. Blocks if the queue is
// full, providing backpressure to the carve workers.
func (f *Funnel) SubmitCarvedFile(rec CarvedFile) {
	rec.CarvedAt = time.Now()
	f.queue <- record{kind: kindCarvedFile, carved: rec}
	monitoring.UpdateMetadataQueueDepth(len(f.queue))
}

// SubmitEntropyRegion enqueues an auxiliary entropy-region record.
func (f *Funnel) SubmitEntropyRegion(rec EntropyRegion) {
	f.queue <- record{kind: kindEntropyRegion, entropy: rec}
	monitoring.UpdateMetadataQueueDepth(len(f.queue))
}

// SubmitStringArtefact enqueues an auxiliary string-artefact record.
func (f *Funnel) SubmitStringArtefact(rec StringArtefact) {
	f.queue <- record{kind: kindStringArtefact, artefact: rec}
	monitoring.UpdateMetadataQueueDepth(len(f.queue))
}

// Close closes the queue, waits for the consumer to drain it, writes the
// run summary, and flushes the sink.
func (f *Funnel) Close(summary RunSummary) error {
	close(f.queue)
	<-f.done
	summary.StringSpans = f.strings.Load()
	summary.Artefacts = f.entropy.Load()
	if err := f.sink.WriteRunSummary(summary); err != nil {
		logger.Log.Warn("metadata: failed writing run summary: {error}", err)
	}
	return f.sink.Close()
}
