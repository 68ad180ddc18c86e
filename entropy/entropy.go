// Package entropy detects high-entropy byte regions within a chunk, an
// auxiliary signal that a span of evidence is compressed or encrypted.
package entropy

import (
	"math"

	"github.com/caseforge/filecarver/metadata"
)

// Detect slides a fixed-size, non-overlapping window across data and
// returns one EntropyRegion per maximal run of adjacent windows whose
// Shannon entropy meets threshold. chunkStart is the absolute evidence
// offset of data[0].
func Detect(runID string, chunkStart int64, data []byte, windowSize int, threshold float64) []metadata.EntropyRegion {
	if windowSize <= 0 || len(data) < windowSize {
		return nil
	}

	var regions []metadata.EntropyRegion
	var open bool
	var start, end int64
	var maxEntropy float64

	for idx := 0; idx+windowSize <= len(data); idx += windowSize {
		window := data[idx : idx+windowSize]
		e := shannon(window)
		winStart := chunkStart + int64(idx)
		winEnd := winStart + int64(windowSize) - 1

		if e >= threshold {
			switch {
			case !open:
				start, end, maxEntropy, open = winStart, winEnd, e, true
			case winStart <= end+1:
				end = winEnd
				if e > maxEntropy {
					maxEntropy = e
				}
			default:
				regions = append(regions, metadata.EntropyRegion{
					RunID: runID, GlobalStart: start, GlobalEnd: end,
					Entropy: maxEntropy, WindowSize: int64(windowSize),
				})
				start, end, maxEntropy = winStart, winEnd, e
			}
			continue
		}

		if open {
			regions = append(regions, metadata.EntropyRegion{
				RunID: runID, GlobalStart: start, GlobalEnd: end,
				Entropy: maxEntropy, WindowSize: int64(windowSize),
			})
			open = false
		}
	}

	if open {
		regions = append(regions, metadata.EntropyRegion{
			RunID: runID, GlobalStart: start, GlobalEnd: end,
			Entropy: maxEntropy, WindowSize: int64(windowSize),
		})
	}

	return regions
}

func shannon(data []byte) float64 {
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	length := float64(len(data))
	var e float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / length
		e -= p * math.Log2(p)
	}
	return e
}
