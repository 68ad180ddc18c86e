// Package monitoring provides Prometheus metrics for file-carving runs.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BytesScanned tracks the total number of evidence bytes read by scan
	// workers, labeled by run.
	BytesScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filecarver_bytes_scanned_total",
		Help: "Total number of evidence bytes scanned",
	}, []string{"run_id"})

	// ChunksProcessed tracks the total number of chunks dispatched to scan
	// workers.
	ChunksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filecarver_chunks_processed_total",
		Help: "Total number of evidence chunks processed",
	}, []string{"run_id"})

	// HitsFound tracks the total number of signature matches found by the
	// scanner, labeled by file type.
	HitsFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filecarver_hits_found_total",
		Help: "Total number of signature hits found",
	}, []string{"run_id", "file_type"})

	// FilesCarved tracks the total number of files successfully carved,
	// labeled by file type and whether the carve was truncated.
	FilesCarved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filecarver_files_carved_total",
		Help: "Total number of files carved",
	}, []string{"run_id", "file_type", "status"})

	// CarveDuration tracks how long a single ProcessHit call takes, labeled
	// by file type.
	CarveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filecarver_carve_duration_seconds",
		Help:    "Duration of a single carve operation in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
	}, []string{"file_type"})

	// CarvedFileSize tracks the size distribution of carved files.
	CarvedFileSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filecarver_carved_file_size_bytes",
		Help:    "Size of carved files in bytes",
		Buckets: prometheus.ExponentialBuckets(64, 4, 15), // 64B to ~16GB
	}, []string{"file_type"})

	// DedupSuppressed tracks hits the dedup ring rejected as already claimed.
	DedupSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filecarver_dedup_suppressed_total",
		Help: "Total number of hits suppressed by overlap deduplication",
	}, []string{"run_id"})

	// LimiterRejected tracks hits dropped once the carve-count cap was hit.
	LimiterRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filecarver_limiter_rejected_total",
		Help: "Total number of hits rejected after the carve limit was reached",
	}, []string{"run_id"})

	// CarveErrors tracks handler errors during ProcessHit, labeled by file
	// type.
	CarveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filecarver_carve_errors_total",
		Help: "Total number of carve handler errors",
	}, []string{"run_id", "file_type"})

	// CheckpointSaves tracks how many times the checkpoint writer persisted
	// state to disk.
	CheckpointSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filecarver_checkpoint_saves_total",
		Help: "Total number of checkpoint writes",
	}, []string{"run_id"})

	// MetadataQueueDepth tracks the current depth of the funnel's submission
	// queue.
	MetadataQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filecarver_metadata_queue_depth",
		Help: "Current depth of the metadata funnel queue",
	})

	// CustodyChainLength tracks the number of records folded into the
	// chain-of-custody digest so far, per run.
	CustodyChainLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "filecarver_custody_chain_length",
		Help: "Number of records folded into the chain-of-custody digest",
	}, []string{"run_id"})

	// ThroughputRate tracks current scan throughput in bytes per second.
	ThroughputRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filecarver_throughput_bytes_per_second",
		Help: "Current evidence scan throughput in bytes per second",
	})

	// ActiveRuns tracks the number of scans currently in progress.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filecarver_active_runs",
		Help: "Number of carving runs currently in progress",
	})

	// MemoryUsage tracks the current process memory usage in bytes.
	MemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filecarver_memory_usage_bytes",
		Help: "Current memory usage in bytes",
	})
)

// RecordBytesScanned adds n bytes to the scanned-bytes counter for runID.
func RecordBytesScanned(runID string, n int64) {
	BytesScanned.WithLabelValues(runID).Add(float64(n))
}

// RecordChunkProcessed increments the processed-chunk counter for runID.
func RecordChunkProcessed(runID string) {
	ChunksProcessed.WithLabelValues(runID).Inc()
}

// RecordHit increments the hit counter for runID and fileType.
func RecordHit(runID, fileType string) {
	HitsFound.WithLabelValues(runID, fileType).Inc()
}

// RecordCarve records a completed carve, labeling status "truncated" or
// "complete".
func RecordCarve(runID, fileType string, truncated bool) {
	status := "complete"
	if truncated {
		status = "truncated"
	}
	FilesCarved.WithLabelValues(runID, fileType, status).Inc()
}

// RecordCarveDuration records how long a ProcessHit call took.
func RecordCarveDuration(fileType string, d time.Duration) {
	CarveDuration.WithLabelValues(fileType).Observe(d.Seconds())
}

// RecordCarvedFileSize records the size of a carved file.
func RecordCarvedFileSize(fileType string, size int64) {
	CarvedFileSize.WithLabelValues(fileType).Observe(float64(size))
}

// RecordDedupSuppressed increments the dedup-suppressed counter for runID.
func RecordDedupSuppressed(runID string) {
	DedupSuppressed.WithLabelValues(runID).Inc()
}

// RecordLimiterRejected increments the limiter-rejected counter for runID.
func RecordLimiterRejected(runID string) {
	LimiterRejected.WithLabelValues(runID).Inc()
}

// RecordCarveError increments the carve-error counter for runID and
// fileType.
func RecordCarveError(runID, fileType string) {
	CarveErrors.WithLabelValues(runID, fileType).Inc()
}

// RecordCheckpointSave increments the checkpoint-save counter for runID.
func RecordCheckpointSave(runID string) {
	CheckpointSaves.WithLabelValues(runID).Inc()
}

// UpdateMetadataQueueDepth sets the current metadata funnel queue depth.
func UpdateMetadataQueueDepth(depth int) {
	MetadataQueueDepth.Set(float64(depth))
}

// UpdateCustodyChainLength sets the current chain-of-custody record count
// for runID.
func UpdateCustodyChainLength(runID string, length int) {
	CustodyChainLength.WithLabelValues(runID).Set(float64(length))
}

// UpdateThroughput sets the current scan throughput in bytes per second.
func UpdateThroughput(bytesPerSecond float64) {
	ThroughputRate.Set(bytesPerSecond)
}

// UpdateActiveRuns sets the number of runs currently in progress.
func UpdateActiveRuns(count int) {
	ActiveRuns.Set(float64(count))
}

// UpdateMemoryUsage sets the current process memory usage in bytes.
func UpdateMemoryUsage(bytes int64) {
	MemoryUsage.Set(float64(bytes))
}
