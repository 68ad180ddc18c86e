// Package config loads the two configuration documents a run needs: the
// YAML run configuration (chunking, caps, output paths) and the JWCC
// file-type signature catalog.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/caseforge/filecarver/evidence"
	"github.com/caseforge/filecarver/metadata"
)

// RunConfig is the top-level YAML document accepted by `filecarver scan`.
type RunConfig struct {
	Evidence   EvidenceConfig   `yaml:"evidence"`
	ChunkSize  int64            `yaml:"chunk_size"`
	Overlap    int64            `yaml:"overlap"`
	Workers    int              `yaml:"workers"`
	OutputDir  string           `yaml:"output_dir"`
	MaxBytes   int64            `yaml:"max_bytes"`
	MaxChunks  int64            `yaml:"max_chunks"`
	MaxFiles   int64            `yaml:"max_files"`
	DedupRing  int              `yaml:"dedup_ring"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Custody    CustodyConfig    `yaml:"custody"`
	Entropy    EntropyConfig    `yaml:"entropy"`
	Strings    StringsConfig    `yaml:"strings"`
	CatalogDoc string           `yaml:"catalog"` // path to a JWCC signature catalog; empty uses the built-in default
	GPU        bool             `yaml:"gpu"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// TelemetryConfig selects the trace exporter for a run, if any.
type TelemetryConfig struct {
	Exporter    string `yaml:"exporter,omitempty"` // "stdout", "jaeger", "otlp"; empty disables tracing
	Endpoint    string `yaml:"endpoint,omitempty"`
	ServiceName string `yaml:"service_name,omitempty"`
}

// EvidenceConfig selects and parameterizes one evidence.Source backend.
type EvidenceConfig struct {
	Kind string `yaml:"kind"` // "file", "s3", "azure", "gcs"

	Path string `yaml:"path,omitempty"` // file

	Bucket          string `yaml:"bucket,omitempty"` // s3 / gcs
	Key             string `yaml:"key,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`

	Account   string `yaml:"account,omitempty"` // azure
	Container string `yaml:"container,omitempty"`
	Blob      string `yaml:"blob,omitempty"`
	SASToken  string `yaml:"sas_token,omitempty"`
}

// CheckpointConfig configures periodic cursor persistence.
type CheckpointConfig struct {
	Path     string        `yaml:"path,omitempty"` // empty disables checkpointing
	Interval time.Duration `yaml:"interval,omitempty"`
}

// MetadataConfig selects the metadata sink backend.
type MetadataConfig struct {
	Backend string `yaml:"backend"` // "jsonl", "jsonl-gzip", "delimited", "redis"
	Root    string `yaml:"root,omitempty"`

	GzipLevel int `yaml:"gzip_level,omitempty"`

	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
}

// CustodyConfig optionally enables chain-of-custody signing.
type CustodyConfig struct {
	Enabled        bool   `yaml:"enabled"`
	PrivateKeyPath string `yaml:"private_key_path,omitempty"` // empty generates an ephemeral key
}

// EntropyConfig toggles the chunk-local entropy scan.
type EntropyConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Window    int     `yaml:"window"`
	Threshold float64 `yaml:"threshold"`
}

// StringsConfig toggles the chunk-local string-artefact scan.
type StringsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// defaults applied after parsing so a minimal YAML document still produces
// a runnable configuration.
func (c *RunConfig) applyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 16 * 1024 * 1024
	}
	if c.Overlap == 0 {
		c.Overlap = 4096
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.DedupRing == 0 {
		c.DedupRing = 4096
	}
	if c.Metadata.Backend == "" {
		c.Metadata.Backend = "jsonl"
	}
	if c.Entropy.Window == 0 {
		c.Entropy.Window = 256
	}
	if c.Entropy.Threshold == 0 {
		c.Entropy.Threshold = 7.5
	}
}

// Build resolves an EvidenceConfig into a concrete evidence.Config the
// caller can Open.
func (e EvidenceConfig) Build() (evidence.Config, error) {
	switch e.Kind {
	case "", "file":
		return evidence.FileConfig{Path: e.Path, Readahead: true}, nil
	case "s3":
		return evidence.S3Config{
			Bucket: e.Bucket, Key: e.Key, Region: e.Region, Endpoint: e.Endpoint,
			AccessKeyID: e.AccessKeyID, SecretAccessKey: e.SecretAccessKey,
		}, nil
	case "azure":
		return evidence.AzureConfig{Account: e.Account, Container: e.Container, Blob: e.Blob, SASToken: e.SASToken}, nil
	case "gcs":
		return evidence.GCSConfig{Bucket: e.Bucket, Object: e.Key}, nil
	default:
		return nil, fmt.Errorf("config: unknown evidence kind %q", e.Kind)
	}
}

// Build resolves a MetadataConfig into a concrete metadata.Config. runID is
// only consulted by backends that key stored records by run (currently
// Redis).
func (m MetadataConfig) Build(runID string) (metadata.Config, error) {
	root := m.Root
	if root == "" {
		root = "."
	}
	switch m.Backend {
	case "", "jsonl":
		return metadata.JSONLConfig{Root: root}, nil
	case "jsonl-gzip":
		return metadata.JSONLGzipConfig{Root: root, Level: m.GzipLevel}, nil
	case "delimited":
		return metadata.DelimitedConfig{Root: root}, nil
	case "redis":
		return metadata.RedisConfig{Addr: m.RedisAddr, Password: m.RedisPassword, DB: m.RedisDB, RunID: runID}, nil
	default:
		return nil, fmt.Errorf("config: unknown metadata backend %q", m.Backend)
	}
}

// Load reads and parses a YAML run configuration from path.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
