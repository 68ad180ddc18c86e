package scanner

import (
	"github.com/caseforge/filecarver/chunk"
	"github.com/caseforge/filecarver/internal/logger"
)

// GPUScanner is the GPU-accelerated scanner variant required by the
// interchangeability contract. This build carries no CUDA/OpenCL runtime
// binding, so every call falls back to the CPU automaton, the same
// fallback path a real GPU backend takes on buffer allocation or kernel
// launch failure, per the scanner's documented fallback contract.
type GPUScanner struct {
	cpu *CPUScanner
}

// NewGPUScanner builds a GPU scanner over the given patterns. Construction
// never fails: the fallback path guarantees ScanChunk always succeeds.
func NewGPUScanner(patterns []Pattern) *GPUScanner {
	return &GPUScanner{cpu: NewCPUScanner(patterns)}
}

func (s *GPUScanner) Name() string { return "gpu-fallback" }

func (s *GPUScanner) ScanChunk(c chunk.ScanChunk, data []byte) ([]Hit, error) {
	logger.Log.Debug("scanner: gpu backend unavailable, falling back to cpu for chunk {chunkID}", c.ID)
	return s.cpu.ScanChunk(c, data)
}
