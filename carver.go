package carver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caseforge/filecarver/checkpoint"
	"github.com/caseforge/filecarver/custody"
	"github.com/caseforge/filecarver/evidence"
	"github.com/caseforge/filecarver/internal/logger"
	"github.com/caseforge/filecarver/metadata"
	"github.com/caseforge/filecarver/monitoring"
	"github.com/caseforge/filecarver/pipeline"
	"github.com/caseforge/filecarver/registry"
	"github.com/caseforge/filecarver/scanner"
	"github.com/caseforge/filecarver/telemetry"
)

// Run is a single forensic carving pass over one evidence source, built by
// New and executed by Scan. A Run is single-use: Scan may only be called
// once.
type Run struct {
	mu     sync.Mutex
	cfg    *runConfig
	closed bool

	src      evidence.Source
	sink     metadata.Sink
	funnel   *metadata.Funnel
	cp       *checkpoint.Writer
	custody  *custody.Engine
	registry *registry.Registry
	scan     scanner.Scanner
}

// Summary is returned by Scan: the run's final counters alongside the
// chain-of-custody digest, if custody was enabled.
type Summary struct {
	metadata.RunSummary
	CustodyDigest string
}

// New builds a Run from the given options. It opens the evidence source
// and metadata sink eagerly; both MUST succeed before New returns, so a
// Scan never fails partway through for a reason New could have caught.
func New(opts ...Option) (*Run, error) {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("carver: invalid option: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.runID == "" {
		cfg.runID = fmt.Sprintf("run-%d", time.Now().UnixNano())
	}

	src, err := cfg.evidenceCfg.Open()
	if err != nil {
		return nil, fmt.Errorf("carver: open evidence: %w", err)
	}

	metadataCfg := cfg.metadataCfg
	if metadataCfg == nil {
		metadataCfg = metadata.JSONLConfig{Root: cfg.outputDir}
	}
	sink, err := metadataCfg.Open()
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("carver: open metadata sink: %w", err)
	}

	reg, err := registry.New(cfg.catalog.RegistryEntries())
	if err != nil {
		_ = sink.Close()
		_ = src.Close()
		return nil, fmt.Errorf("carver: build registry: %w", err)
	}

	patterns, err := cfg.catalog.Patterns()
	if err != nil {
		_ = sink.Close()
		_ = src.Close()
		return nil, fmt.Errorf("carver: build patterns: %w", err)
	}

	var sc scanner.Scanner
	if cfg.gpu {
		sc = scanner.NewGPUScanner(patterns)
	} else {
		sc = scanner.New(patterns)
	}

	var cp *checkpoint.Writer
	if cfg.checkpointPath != "" {
		cp = checkpoint.NewWriter(cfg.checkpointPath, cfg.runID, cfg.chunkSize, cfg.overlap, src.Len(), cfg.checkpointInterval)
	}

	var custodyEngine *custody.Engine
	if cfg.custodyEnabled {
		custodyEngine = custody.New(cfg.custodySigner)
	}

	funnel := metadata.NewFunnel(sink, 4*cfg.workers)

	return &Run{
		cfg:      cfg,
		src:      src,
		sink:     sink,
		funnel:   funnel,
		cp:       cp,
		custody:  custodyEngine,
		registry: reg,
		scan:     sc,
	}, nil
}

// Scan executes the carving pipeline to completion or until ctx is
// cancelled, then closes the run's evidence source, metadata sink, and
// checkpoint writer.
func (r *Run) Scan(ctx context.Context) (*Summary, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRunClosed
	}
	r.closed = true
	r.mu.Unlock()

	startedAt := time.Now()

	shutdownTracing, err := telemetry.Setup(ctx, r.cfg.telemetry)
	if err != nil {
		logger.Log.Warn("carver: telemetry setup failed, continuing untraced: {error}", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Log.Warn("carver: telemetry shutdown failed: {error}", err)
		}
	}()

	liveCounters := &pipeline.Counters{}
	pcfg := pipeline.Config{
		RunID:      r.cfg.runID,
		Evidence:   r.src,
		OutputDir:  r.cfg.outputDir,
		ChunkSize:  r.cfg.chunkSize,
		Overlap:    r.cfg.overlap,
		Workers:    r.cfg.workers,
		MaxBytes:   r.cfg.maxBytes,
		MaxChunks:  r.cfg.maxChunks,
		ResumeFrom: r.cfg.resumeFrom,
		MaxFiles:   r.cfg.maxFiles,
		DedupRing:  r.cfg.dedupRing,
		Scanner:    r.scan,
		Registry:   r.registry,
		Funnel:     r.funnel,
		Checkpoint: r.cp,
		EntropyOn:  r.cfg.entropyOn,
		EntropyWin: r.cfg.entropyWin,
		EntropyMin: r.cfg.entropyMin,
		StringsOn:  r.cfg.stringsOn,
		Custody:    r.custody,
		Counters:   liveCounters,
	}

	mon := monitoring.New(r.cfg.runID, liveCounters)
	mon.Start()
	counters, runErr := pipeline.Run(ctx, pcfg)
	mon.Stop()

	summary := metadata.RunSummary{
		RunID:           r.cfg.runID,
		EvidencePath:    r.src.Name(),
		EvidenceLen:     r.src.Len(),
		BytesScanned:    counters.BytesScanned.Load(),
		ChunksProcessed: counters.ChunksProcessed.Load(),
		HitsFound:       counters.HitsFound.Load(),
		FilesCarved:     counters.FilesCarved.Load(),
		StartedAt:       startedAt,
		FinishedAt:      time.Now(),
	}

	if err := r.funnel.Close(summary); err != nil {
		logger.Log.Warn("carver: metadata sink close failed: {error}", err)
	}

	if r.custody != nil {
		if err := r.custody.WriteManifest(r.cfg.outputDir, r.cfg.runID); err != nil {
			logger.Log.Warn("carver: custody manifest write failed: {error}", err)
		}
	}

	if r.cp != nil {
		if err := r.cp.Close(); err != nil {
			logger.Log.Warn("carver: checkpoint close failed: {error}", err)
		}
	}

	if err := r.src.Close(); err != nil {
		logger.Log.Warn("carver: evidence close failed: {error}", err)
	}

	if runErr != nil {
		return nil, fmt.Errorf("carver: scan: %w", runErr)
	}
	return &Summary{RunSummary: summary, CustodyDigest: r.custody.Digest()}, nil
}
