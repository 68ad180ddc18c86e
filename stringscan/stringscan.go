// Package stringscan extracts printable-string spans from chunk bytes, an
// auxiliary analysis run alongside the signature scan.
package stringscan

import (
	"unicode/utf16"

	"github.com/caseforge/filecarver/metadata"
)

// MinLength is the shortest span counted as a string artefact.
const MinLength = 4

func isPrintableASCII(b byte) bool { return b >= 0x20 && b < 0x7f }

// ScanASCII returns every maximal run of printable ASCII bytes at least
// MinLength long, as string artefacts with absolute offsets.
func ScanASCII(runID string, chunkStart int64, data []byte) []metadata.StringArtefact {
	var artefacts []metadata.StringArtefact
	start := -1
	for i := 0; i <= len(data); i++ {
		printable := i < len(data) && isPrintableASCII(data[i])
		if printable {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			if i-start >= MinLength {
				artefacts = append(artefacts, metadata.StringArtefact{
					RunID:       runID,
					GlobalStart: chunkStart + int64(start),
					Length:      i - start,
					Encoding:    "ascii",
					Value:       string(data[start:i]),
				})
			}
			start = -1
		}
	}
	return artefacts
}

// ScanUTF16LE returns every maximal run of printable UTF-16LE code units at
// least MinLength runes long. Windows registry and browser artefacts are
// commonly encoded this way.
func ScanUTF16LE(runID string, chunkStart int64, data []byte) []metadata.StringArtefact {
	var artefacts []metadata.StringArtefact
	var units []uint16
	start := -1

	flush := func(endByteOffset int) {
		if start == -1 || len(units) < MinLength {
			start, units = -1, units[:0]
			return
		}
		runes := utf16.Decode(units)
		artefacts = append(artefacts, metadata.StringArtefact{
			RunID:       runID,
			GlobalStart: chunkStart + int64(start),
			Length:      len(units) * 2,
			Encoding:    "utf16le",
			Value:       string(runes),
		})
		start, units = -1, units[:0]
	}

	for i := 0; i+1 < len(data); i += 2 {
		unit := uint16(data[i]) | uint16(data[i+1])<<8
		if unit >= 0x20 && unit < 0x7f {
			if start == -1 {
				start = i
			}
			units = append(units, unit)
			continue
		}
		flush(i)
	}
	flush(len(data))

	return artefacts
}
