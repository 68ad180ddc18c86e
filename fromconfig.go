package carver

import (
	"fmt"

	"github.com/caseforge/filecarver/checkpoint"
	"github.com/caseforge/filecarver/config"
	"github.com/caseforge/filecarver/custody"
	"github.com/caseforge/filecarver/telemetry"
)

// NewFromConfig builds a Run from a parsed YAML RunConfig, the shape
// `filecarver scan` accepts on disk. It is the CLI-facing counterpart to
// New(opts...Option), the programmatic constructor embedders use directly.
func NewFromConfig(cfg *config.RunConfig, runID string) (*Run, error) {
	evidenceCfg, err := cfg.Evidence.Build()
	if err != nil {
		return nil, err
	}
	metadataCfg, err := cfg.Metadata.Build(runID)
	if err != nil {
		return nil, err
	}

	catalog := config.DefaultCatalog()
	if cfg.CatalogDoc != "" {
		catalog, err = config.LoadCatalog(cfg.CatalogDoc)
		if err != nil {
			return nil, err
		}
	}

	opts := []Option{
		WithEvidence(evidenceCfg),
		WithOutputDir(cfg.OutputDir),
		WithChunking(cfg.ChunkSize, cfg.Overlap),
		WithWorkers(cfg.Workers),
		WithCaps(cfg.MaxBytes, cfg.MaxChunks, cfg.MaxFiles),
		WithDedupRing(cfg.DedupRing),
		WithCatalog(catalog),
		WithMetadataSink(metadataCfg),
	}
	if runID != "" {
		opts = append(opts, WithRunID(runID))
	}
	if cfg.Checkpoint.Path != "" {
		opts = append(opts, WithCheckpoint(cfg.Checkpoint.Path, cfg.Checkpoint.Interval))
	}
	if cfg.Custody.Enabled {
		signer, err := buildSigner(cfg.Custody.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCustody(signer))
	}
	if cfg.Entropy.Enabled {
		opts = append(opts, WithEntropyScan(cfg.Entropy.Window, cfg.Entropy.Threshold))
	}
	if cfg.Strings.Enabled {
		opts = append(opts, WithStringScan())
	}
	if cfg.GPU {
		opts = append(opts, WithGPU())
	}
	if cfg.Telemetry.Exporter != "" {
		opts = append(opts, WithTelemetry(telemetry.Config{
			Exporter:    telemetry.Exporter(cfg.Telemetry.Exporter),
			Endpoint:    cfg.Telemetry.Endpoint,
			ServiceName: cfg.Telemetry.ServiceName,
		}))
	}

	return New(opts...)
}

func buildSigner(privateKeyPath string) (*custody.Signer, error) {
	if privateKeyPath == "" {
		signer, err := custody.NewSigner()
		if err != nil {
			return nil, fmt.Errorf("carver: generate custody signer: %w", err)
		}
		return signer, nil
	}
	signer, err := custody.LoadSigner(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("carver: load custody signer: %w", err)
	}
	return signer, nil
}

// ResumeFromConfig builds a Run identical to NewFromConfig but resuming
// from a previously saved checkpoint, skipping every chunk starting before
// the checkpointed cursor. It refuses to resume against evidence whose
// length or chunking parameters no longer match what the checkpoint was
// taken against.
func ResumeFromConfig(cfg *config.RunConfig, checkpointPath string) (*Run, error) {
	state, err := checkpoint.Load(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("carver: load checkpoint: %w", err)
	}

	evidenceCfg, err := cfg.Evidence.Build()
	if err != nil {
		return nil, err
	}
	probe, err := evidenceCfg.Open()
	if err != nil {
		return nil, fmt.Errorf("carver: open evidence: %w", err)
	}
	evidenceLen := probe.Len()
	_ = probe.Close()

	if !state.Compatible(cfg.ChunkSize, cfg.Overlap, evidenceLen) {
		return nil, fmt.Errorf("%w: checkpoint does not match this evidence or chunking parameters", ErrConfigInvalid)
	}

	run, err := NewFromConfig(cfg, state.RunID)
	if err != nil {
		return nil, err
	}
	run.cfg.resumeFrom = state.NextOffset
	return run, nil
}
