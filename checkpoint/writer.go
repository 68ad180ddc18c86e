package checkpoint

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/caseforge/filecarver/internal/logger"
	"github.com/caseforge/filecarver/monitoring"
)

// Writer periodically snapshots the dispatcher's next-chunk cursor to disk.
// A ticker goroutine drains the latest offset rather than writing on every
// chunk, bounding checkpoint I/O independent of chunk size.
type Writer struct {
	path        string
	runID       string
	chunkSize   int64
	overlap     int64
	evidenceLen int64

	nextOffset atomic.Int64
	interval   time.Duration
	stop       chan struct{}
	wg         sync.WaitGroup

	progressMu sync.Mutex
	expectedID uint64
	pending    map[uint64]int64
}

// NewWriter starts a background goroutine that saves a checkpoint every
// interval until Close is called. A non-positive interval disables the
// background loop; callers must call Flush explicitly in that case.
func NewWriter(path, runID string, chunkSize, overlap, evidenceLen int64, interval time.Duration) *Writer {
	w := &Writer{
		path:        path,
		runID:       runID,
		chunkSize:   chunkSize,
		overlap:     overlap,
		evidenceLen: evidenceLen,
		interval:    interval,
		stop:        make(chan struct{}),
	}
	if interval > 0 {
		w.wg.Add(1)
		go w.run()
	}
	return w
}

// Advance records the dispatcher's current cursor directly, bypassing the
// contiguous-completion gating CompleteChunk performs. Safe for concurrent
// use, but a Writer driven by CompleteChunk should not also call Advance:
// the two must not be mixed on the same Writer.
func (w *Writer) Advance(offset int64) {
	w.nextOffset.Store(offset)
}

// InitChunkProgress seeds the chunk-completion tracker with the ID of the
// first chunk a run will scan (nonzero on a resumed run, since SkipBefore
// does not renumber chunk IDs). Call once before any CompleteChunk call.
func (w *Writer) InitChunkProgress(startID uint64) {
	w.progressMu.Lock()
	defer w.progressMu.Unlock()
	w.expectedID = startID
	w.pending = make(map[uint64]int64)
}

// CompleteChunk marks chunk id as fully scanned, ending at endOffset. The
// saved cursor only advances past a contiguous run of completed chunks
// starting at the lowest ID not yet accounted for, so a chunk that finishes
// scanning out of order (chunk 5 before chunk 3) does not let the checkpoint
// skip past chunk 3 until chunk 3 itself completes. This keeps a crash
// between a chunk's dispatch and its scan from having the chunk silently
// skipped on resume.
func (w *Writer) CompleteChunk(id uint64, endOffset int64) {
	w.progressMu.Lock()
	defer w.progressMu.Unlock()
	if w.pending == nil {
		w.pending = make(map[uint64]int64)
	}
	w.pending[id] = endOffset
	for {
		end, ok := w.pending[w.expectedID]
		if !ok {
			break
		}
		delete(w.pending, w.expectedID)
		w.nextOffset.Store(end)
		w.expectedID++
	}
}

func (w *Writer) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := w.Flush(); err != nil {
				logger.Log.Warn("checkpoint: periodic save failed: {error}", err)
			}
		case <-w.stop:
			return
		}
	}
}

// Flush saves the current cursor immediately.
func (w *Writer) Flush() error {
	state := New(w.runID, w.chunkSize, w.overlap, w.nextOffset.Load(), w.evidenceLen)
	if err := Save(w.path, state); err != nil {
		return err
	}
	monitoring.RecordCheckpointSave(w.runID)
	return nil
}

// Close stops the background loop and saves a final checkpoint.
func (w *Writer) Close() error {
	close(w.stop)
	w.wg.Wait()
	return w.Flush()
}
