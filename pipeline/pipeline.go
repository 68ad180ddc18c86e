// Package pipeline wires the dispatcher, scan workers, carve workers, and
// metadata thread into one concurrent run over a piece of evidence.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/caseforge/filecarver/carve"
	"github.com/caseforge/filecarver/checkpoint"
	"github.com/caseforge/filecarver/chunk"
	"github.com/caseforge/filecarver/custody"
	"github.com/caseforge/filecarver/dedup"
	"github.com/caseforge/filecarver/entropy"
	"github.com/caseforge/filecarver/evidence"
	"github.com/caseforge/filecarver/internal/logger"
	"github.com/caseforge/filecarver/limiter"
	"github.com/caseforge/filecarver/metadata"
	"github.com/caseforge/filecarver/monitoring"
	"github.com/caseforge/filecarver/registry"
	"github.com/caseforge/filecarver/scanner"
	"github.com/caseforge/filecarver/stringscan"
	"github.com/caseforge/filecarver/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// scanJob is the unit of work the dispatcher publishes to scan workers: a
// chunk paired with its bytes, read once and shared read-only across the W
// scan workers that may race to process it (only one worker ever claims a
// given chunk, but the slice itself is safe to share since none mutate it).
type scanJob struct {
	c    chunk.ScanChunk
	data []byte
}

// Config parameterizes one pipeline run.
type Config struct {
	RunID       string
	Evidence    evidence.Source
	OutputDir   string
	ChunkSize   int64
	Overlap     int64
	Workers     int
	MaxBytes    int64 // 0 means unlimited
	MaxChunks   int64 // 0 means unlimited
	ResumeFrom  int64 // skip chunks starting before this offset
	MaxFiles    int64 // 0 means unlimited, forwarded to the carve limiter
	DedupRing   int   // ring capacity forwarded to dedup.New
	Scanner     scanner.Scanner
	Registry    *registry.Registry
	Funnel      *metadata.Funnel
	Checkpoint  *checkpoint.Writer // nil disables periodic checkpointing
	EntropyOn   bool
	EntropyWin  int
	EntropyMin  float64
	StringsOn   bool
	Custody     *custody.Engine // nil disables chain-of-custody hashing
	Counters    *Counters       // optional; lets a caller observe counters live. A nil value is allocated internally.
}

// Counters are the atomic run-wide counters surfaced in the run summary and
// via monitoring.
type Counters struct {
	BytesScanned    atomic.Int64
	ChunksProcessed atomic.Int64
	HitsFound       atomic.Int64
	FilesCarved     atomic.Int64
}

// The accessor methods below satisfy monitoring.CounterSource so a *Counters
// can be handed to a monitoring.Monitor.

func (c *Counters) BytesScannedValue() int64    { return c.BytesScanned.Load() }
func (c *Counters) ChunksProcessedValue() int64 { return c.ChunksProcessed.Load() }
func (c *Counters) HitsFoundValue() int64       { return c.HitsFound.Load() }
func (c *Counters) FilesCarvedValue() int64     { return c.FilesCarved.Load() }

// Run executes the pipeline to completion or until ctx is cancelled. It
// returns the first error encountered by any stage; cancellation from one
// stage propagates to the others via the errgroup context.
func Run(ctx context.Context, cfg Config) (*Counters, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	scanQueueCap := 2 * cfg.Workers
	if scanQueueCap < 1 {
		scanQueueCap = 1
	}
	hitQueueCap := 4 * cfg.Workers

	counters := cfg.Counters
	if counters == nil {
		counters = &Counters{}
	}
	lim := limiter.New(cfg.MaxFiles)
	dd := dedup.New(cfg.DedupRing)

	scanQueue := make(chan scanJob, scanQueueCap)
	hitQueue := make(chan carve.Hit, hitQueueCap)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatch(gctx, cfg, scanQueue, counters)
	})

	// The scan stage closes hitQueue only once every scan worker has
	// returned, so it runs its own sub-group and closes downstream from a
	// single supervisor goroutine rather than racing N workers to close it.
	g.Go(func() error {
		scanGroup, sctx := errgroup.WithContext(gctx)
		for i := 0; i < cfg.Workers; i++ {
			scanGroup.Go(func() error {
				return scanWorker(sctx, cfg, scanQueue, hitQueue, counters)
			})
		}
		err := scanGroup.Wait()
		close(hitQueue)
		return err
	})

	g.Go(func() error {
		carveGroup, cctx := errgroup.WithContext(gctx)
		for i := 0; i < cfg.Workers; i++ {
			carveGroup.Go(func() error {
				return carveWorker(cctx, cfg, hitQueue, dd, lim, counters)
			})
		}
		return carveGroup.Wait()
	})

	if err := g.Wait(); err != nil {
		return counters, err
	}
	return counters, nil
}

func dispatch(ctx context.Context, cfg Config, scanQueue chan<- scanJob, counters *Counters) error {
	defer close(scanQueue)

	plan := chunk.Plan(cfg.Evidence.Len(), cfg.ChunkSize, cfg.Overlap)
	plan = chunk.SkipBefore(plan, cfg.ResumeFrom)

	if cfg.Checkpoint != nil && len(plan) > 0 {
		cfg.Checkpoint.InitChunkProgress(plan[0].ID)
	}

	var bytesRead, chunksRead int64
	for _, c := range plan {
		if cfg.MaxChunks > 0 && chunksRead >= cfg.MaxChunks {
			break
		}
		if cfg.MaxBytes > 0 && bytesRead >= cfg.MaxBytes {
			break
		}

		_, span := telemetry.StartChunk(ctx, int64(c.ID), c.Length)

		data := make([]byte, c.Length)
		n, err := evidence.ReadFullAt(cfg.Evidence, data, c.Start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "read chunk failed")
			span.End()
			return fmt.Errorf("pipeline: dispatch: read chunk %d: %w", c.ID, err)
		}
		data = data[:n]

		select {
		case scanQueue <- scanJob{c: c, data: data}:
		case <-ctx.Done():
			span.End()
			return ctx.Err()
		}
		span.End()

		bytesRead += int64(n)
		chunksRead++
		counters.BytesScanned.Add(int64(n))
		counters.ChunksProcessed.Add(1)
		monitoring.RecordBytesScanned(cfg.RunID, int64(n))
		monitoring.RecordChunkProcessed(cfg.RunID)
	}
	return nil
}

func scanWorker(ctx context.Context, cfg Config, scanQueue <-chan scanJob, hitQueue chan<- carve.Hit, counters *Counters) error {
	for {
		select {
		case job, ok := <-scanQueue:
			if !ok {
				return nil
			}
			hits, err := cfg.Scanner.ScanChunk(job.c, job.data)
			if err != nil {
				return fmt.Errorf("pipeline: scan chunk %d: %w", job.c.ID, err)
			}
			counters.HitsFound.Add(int64(len(hits)))
			for _, h := range hits {
				monitoring.RecordHit(cfg.RunID, h.FileTypeID)
				ch := carve.FromScannerHit(h, job.c.Start)
				select {
				case hitQueue <- ch:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			valid := job.data
			if int64(len(valid)) > job.c.ValidLength {
				valid = valid[:job.c.ValidLength]
			}
			if cfg.EntropyOn {
				for _, r := range entropy.Detect(cfg.RunID, job.c.Start, valid, cfg.EntropyWin, cfg.EntropyMin) {
					cfg.Funnel.SubmitEntropyRegion(r)
				}
			}
			if cfg.StringsOn {
				for _, a := range stringscan.ScanASCII(cfg.RunID, job.c.Start, valid) {
					cfg.Funnel.SubmitStringArtefact(a)
				}
				for _, a := range stringscan.ScanUTF16LE(cfg.RunID, job.c.Start, valid) {
					cfg.Funnel.SubmitStringArtefact(a)
				}
			}
			if cfg.Checkpoint != nil {
				cfg.Checkpoint.CompleteChunk(job.c.ID, job.c.OverlapStart())
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func carveWorker(ctx context.Context, cfg Config, hitQueue <-chan carve.Hit, dd *dedup.Dedup, lim *limiter.Limiter, counters *Counters) error {
	carveCtx := carve.Context{
		RunID:     cfg.RunID,
		Evidence:  cfg.Evidence,
		OutputDir: cfg.OutputDir,
	}
	for {
		select {
		case hit, ok := <-hitQueue:
			if !ok {
				return nil
			}
			if !dd.Claim(dedup.Key{GlobalOffset: hit.GlobalOffset, FileTypeID: hit.FileTypeID}) {
				monitoring.RecordDedupSuppressed(cfg.RunID)
				continue
			}
			if lim.ShouldStop() {
				monitoring.RecordLimiterRejected(cfg.RunID)
				continue
			}
			if !lim.TryReserve() {
				monitoring.RecordLimiterRejected(cfg.RunID)
				continue
			}

			handler, ok := cfg.Registry.Lookup(hit.FileTypeID)
			if !ok {
				lim.Release()
				continue
			}

			_, span := telemetry.StartCarve(ctx, hit.FileTypeID, hit.GlobalOffset)
			carveStart := time.Now()
			result, err := handler.ProcessHit(hit, carveCtx)
			monitoring.RecordCarveDuration(hit.FileTypeID, time.Since(carveStart))
			if err != nil {
				lim.Release()
				monitoring.RecordCarveError(cfg.RunID, hit.FileTypeID)
				span.RecordError(err)
				span.SetStatus(codes.Error, "carve failed")
				span.End()
				logger.Log.Warn("pipeline: carve failed for {fileType} at {offset}: {error}", hit.FileTypeID, hit.GlobalOffset, err)
				continue
			}
			if result == nil {
				span.End()
				lim.Release()
				continue
			}
			span.End()

			lim.Commit()
			counters.FilesCarved.Add(1)
			monitoring.RecordCarve(cfg.RunID, handler.FileType(), result.Truncated)
			monitoring.RecordCarvedFileSize(handler.FileType(), result.Size)
			rec := metadata.CarvedFile{
				RunID:        cfg.RunID,
				FileType:     handler.FileType(),
				RelativePath: result.RelativePath,
				Extension:    result.Extension,
				GlobalStart:  result.GlobalStart,
				GlobalEnd:    result.GlobalEnd,
				Size:         result.Size,
				MD5:          result.MD5,
				SHA256:       result.SHA256,
				Validated:    result.Validated,
				Truncated:    result.Truncated,
				Errors:       result.Errors,
				PatternID:    hit.PatternID,
				Timestamps:   result.Timestamps,
			}
			if err := cfg.Custody.Record(rec); err != nil {
				logger.Log.Warn("pipeline: custody chain update failed: {error}", err)
			} else if cfg.Custody != nil {
				monitoring.UpdateCustodyChainLength(cfg.RunID, cfg.Custody.Count())
			}
			cfg.Funnel.SubmitCarvedFile(rec)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
