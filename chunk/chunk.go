// Package chunk partitions evidence into overlapping scan windows.
package chunk

// ScanChunk is an immutable, contiguous window of evidence handed to a
// scanner. Length may exceed ValidLength by the overlap so that a magic
// straddling the boundary between two chunks is fully visible to at least
// one of them.
type ScanChunk struct {
	ID          uint64
	Start       int64
	Length      int64
	ValidLength int64
}

// End returns the exclusive end offset of the chunk, Start+Length.
func (c ScanChunk) End() int64 { return c.Start + c.Length }

// OverlapStart returns the offset at which the trailing overlap region
// begins: Start+ValidLength.
func (c ScanChunk) OverlapStart() int64 { return c.Start + c.ValidLength }

// Plan produces the sequence of ScanChunks covering [0, totalLen) given a
// chunk size and trailing overlap. A chunkSize of 0 produces no chunks.
// Planning is a pure function of its inputs: repeated calls with the same
// arguments yield an identical sequence.
func Plan(totalLen, chunkSize, overlap int64) []ScanChunk {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []ScanChunk
	var id uint64
	for start := int64(0); start < totalLen; start += chunkSize {
		remaining := totalLen - start
		validLength := chunkSize
		if validLength > remaining {
			validLength = remaining
		}
		length := chunkSize + overlap
		if length > remaining {
			length = remaining
		}
		chunks = append(chunks, ScanChunk{
			ID:          id,
			Start:       start,
			Length:      length,
			ValidLength: validLength,
		})
		id++
	}
	return chunks
}

// SkipBefore filters a plan down to chunks whose Start is at or past
// resumeOffset, used to resume a checkpointed run.
func SkipBefore(chunks []ScanChunk, resumeOffset int64) []ScanChunk {
	if resumeOffset <= 0 {
		return chunks
	}
	for i, c := range chunks {
		if c.Start >= resumeOffset {
			return chunks[i:]
		}
	}
	return nil
}
