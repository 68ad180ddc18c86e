package carver

import (
	"fmt"
	"time"

	"github.com/caseforge/filecarver/config"
	"github.com/caseforge/filecarver/custody"
	"github.com/caseforge/filecarver/evidence"
	"github.com/caseforge/filecarver/metadata"
	"github.com/caseforge/filecarver/telemetry"
)

// Option configures a Run before it starts.
type Option func(*runConfig) error

// runConfig is the fully-resolved, programmatic configuration a Run builds
// from. Unlike config.RunConfig (the YAML document `filecarver scan`
// parses), this is assembled directly by Option functions for callers
// embedding the carver as a library rather than driving it from the CLI.
type runConfig struct {
	runID string

	evidenceCfg evidence.Config
	outputDir   string

	chunkSize int64
	overlap   int64
	workers   int

	maxBytes   int64
	maxChunks  int64
	maxFiles   int64
	dedupRing  int
	resumeFrom int64

	catalog *config.CatalogDoc

	metadataCfg metadata.Config

	checkpointPath     string
	checkpointInterval time.Duration

	custodyEnabled bool
	custodySigner  *custody.Signer

	entropyOn  bool
	entropyWin int
	entropyMin float64
	stringsOn  bool

	gpu bool

	telemetry telemetry.Config
}

// defaultRunConfig mirrors config.RunConfig.applyDefaults so New produces a
// runnable Run from nothing but WithEvidence/WithOutputDir.
func defaultRunConfig() *runConfig {
	return &runConfig{
		chunkSize:  16 * 1024 * 1024,
		overlap:    4096,
		workers:    4,
		outputDir:  ".",
		dedupRing:  4096,
		entropyWin: 256,
		entropyMin: 7.5,
		catalog:    config.DefaultCatalog(),
	}
}

// WithRunID sets the run identifier embedded in every emitted record.
// Generates one from the current time if never called.
func WithRunID(id string) Option {
	return func(c *runConfig) error {
		if id == "" {
			return fmt.Errorf("carver: run id must not be empty")
		}
		c.runID = id
		return nil
	}
}

// WithEvidence selects the evidence source to scan. Required.
func WithEvidence(cfg evidence.Config) Option {
	return func(c *runConfig) error {
		c.evidenceCfg = cfg
		return nil
	}
}

// WithOutputDir sets the directory carved files and metadata are written
// under.
func WithOutputDir(dir string) Option {
	return func(c *runConfig) error {
		if dir == "" {
			return fmt.Errorf("carver: output dir must not be empty")
		}
		c.outputDir = dir
		return nil
	}
}

// WithChunking sets the scan chunk size and trailing overlap, in bytes.
func WithChunking(chunkSize, overlap int64) Option {
	return func(c *runConfig) error {
		if chunkSize <= 0 {
			return fmt.Errorf("carver: chunk size must be positive")
		}
		if overlap < 0 {
			return fmt.Errorf("carver: overlap must not be negative")
		}
		c.chunkSize = chunkSize
		c.overlap = overlap
		return nil
	}
}

// WithWorkers sets the scan and carve worker pool size.
func WithWorkers(n int) Option {
	return func(c *runConfig) error {
		if n < 1 {
			return fmt.Errorf("carver: workers must be at least 1")
		}
		c.workers = n
		return nil
	}
}

// WithCaps bounds a run by total bytes read, chunks dispatched, and files
// carved. Zero means unlimited for each.
func WithCaps(maxBytes, maxChunks, maxFiles int64) Option {
	return func(c *runConfig) error {
		c.maxBytes = maxBytes
		c.maxChunks = maxChunks
		c.maxFiles = maxFiles
		return nil
	}
}

// WithDedupRing sets the overlap-dedup ring's capacity.
func WithDedupRing(capacity int) Option {
	return func(c *runConfig) error {
		if capacity < 1 {
			return fmt.Errorf("carver: dedup ring capacity must be positive")
		}
		c.dedupRing = capacity
		return nil
	}
}

// WithResumeFrom skips every chunk starting before offset, for continuing
// a previously checkpointed run.
func WithResumeFrom(offset int64) Option {
	return func(c *runConfig) error {
		c.resumeFrom = offset
		return nil
	}
}

// WithCatalog overrides the built-in signature catalog.
func WithCatalog(doc *config.CatalogDoc) Option {
	return func(c *runConfig) error {
		if doc == nil {
			return fmt.Errorf("carver: catalog must not be nil")
		}
		c.catalog = doc
		return nil
	}
}

// WithMetadataSink selects the metadata backend.
func WithMetadataSink(cfg metadata.Config) Option {
	return func(c *runConfig) error {
		c.metadataCfg = cfg
		return nil
	}
}

// WithCheckpoint enables periodic cursor persistence to path.
func WithCheckpoint(path string, interval time.Duration) Option {
	return func(c *runConfig) error {
		if path == "" {
			return fmt.Errorf("carver: checkpoint path must not be empty")
		}
		c.checkpointPath = path
		c.checkpointInterval = interval
		return nil
	}
}

// WithCustody enables chain-of-custody hashing. A nil signer leaves the
// final manifest digest unsigned.
func WithCustody(signer *custody.Signer) Option {
	return func(c *runConfig) error {
		c.custodyEnabled = true
		c.custodySigner = signer
		return nil
	}
}

// WithEntropyScan enables the chunk-local entropy scan with the given
// sliding window size and Shannon-entropy threshold.
func WithEntropyScan(window int, threshold float64) Option {
	return func(c *runConfig) error {
		if window < 1 {
			return fmt.Errorf("carver: entropy window must be positive")
		}
		c.entropyOn = true
		c.entropyWin = window
		c.entropyMin = threshold
		return nil
	}
}

// WithStringScan enables the chunk-local printable-string extraction.
func WithStringScan() Option {
	return func(c *runConfig) error {
		c.stringsOn = true
		return nil
	}
}

// WithGPU selects the GPU-accelerated scanner when available, falling back
// to the CPU scanner if CUDA is not compiled in.
func WithGPU() Option {
	return func(c *runConfig) error {
		c.gpu = true
		return nil
	}
}

// WithTelemetry enables span tracing for each dispatched chunk and carve
// attempt, exported per cfg. The zero Config disables tracing entirely.
func WithTelemetry(cfg telemetry.Config) Option {
	return func(c *runConfig) error {
		c.telemetry = cfg
		return nil
	}
}

// validate checks a fully-applied runConfig before a Run starts.
func (c *runConfig) validate() error {
	if c.evidenceCfg == nil {
		return fmt.Errorf("%w: evidence source is required", ErrConfigInvalid)
	}
	if c.chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrConfigInvalid)
	}
	return nil
}
