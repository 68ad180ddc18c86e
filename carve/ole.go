package carve

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/caseforge/filecarver/internal/carvetime"
)

var oleSignature = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const oleHeaderLen = 512
const oleSectorSizeV3 = 512
const oleSectorSizeV4 = 4096
const oleDifatEntries = 109
const oleDifatBase = 76
const oleFreesectThreshold = 0xFFFFFFFA

// OLEHandler carves OLE/Compound File Binary containers (legacy Office
// DOC/XLS/PPT, MSG). Exact length is not recoverable from the header alone
// without walking the FAT chain, so this handler follows a conservative
// upper-bound heuristic: the highest sector id referenced by the header's
// 109-entry DIFAT or its first-directory-sector field, plus one, doubled,
// plus the header sector, capped at max_size. When no sector id is found,
// the FAT and DIFAT sector counts plus 10 (at least 10 sectors) are used.
type OLEHandler struct {
	extension string
	minSize   int64
	maxSize   int64
}

// NewOLEHandler builds an OLE/CFB handler.
func NewOLEHandler(extension string, minSize, maxSize int64) *OLEHandler {
	return &OLEHandler{extension: extension, minSize: minSize, maxSize: maxSize}
}

func (h *OLEHandler) FileType() string  { return "ole" }
func (h *OLEHandler) Extension() string { return h.extension }

func (h *OLEHandler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	header := make([]byte, oleHeaderLen)
	n, err := ctx.Evidence.ReadAt(header, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read ole header", Err: err}
	}
	if n < oleHeaderLen {
		return nil, nil
	}
	for i, b := range oleSignature {
		if header[i] != b {
			return nil, nil
		}
	}

	byteOrder := binary.LittleEndian.Uint16(header[28:30])
	if byteOrder != 0xFFFE {
		return nil, nil
	}

	majorVersion := binary.LittleEndian.Uint16(header[26:28])
	sectorPower := binary.LittleEndian.Uint16(header[30:32])

	var sectorSize int64
	switch majorVersion {
	case 3:
		if sectorPower != 9 {
			return nil, nil
		}
		sectorSize = oleSectorSizeV3
	case 4:
		if sectorPower != 12 {
			return nil, nil
		}
		sectorSize = oleSectorSizeV4
	default:
		return nil, nil
	}

	numFATSectors := binary.LittleEndian.Uint32(header[44:48])
	firstDirSector := binary.LittleEndian.Uint32(header[48:52])
	numDIFATSectors := binary.LittleEndian.Uint32(header[68:72])

	var maxSector uint32
	for i := 0; i < oleDifatEntries; i++ {
		offset := oleDifatBase + i*4
		if offset+4 > len(header) {
			break
		}
		sectorID := binary.LittleEndian.Uint32(header[offset : offset+4])
		if sectorID < oleFreesectThreshold && sectorID > maxSector {
			maxSector = sectorID
		}
	}
	if firstDirSector < oleFreesectThreshold && firstDirSector > maxSector {
		maxSector = firstDirSector
	}

	var estimatedSectors int64
	if maxSector > 0 {
		estimatedSectors = (int64(maxSector) + 1) * 2
	} else {
		estimatedSectors = int64(numFATSectors) + int64(numDIFATSectors) + 10
		if estimatedSectors < 10 {
			estimatedSectors = 10
		}
	}
	estimatedSize := sectorSize + estimatedSectors*sectorSize
	timestamps := readRootDirTimestamps(ctx, hit.GlobalOffset, firstDirSector, sectorSize, oleFreesectThreshold)

	totalEnd := hit.GlobalOffset + estimatedSize
	var truncated bool
	var errs []string
	if h.maxSize > 0 && estimatedSize > h.maxSize {
		totalEnd = hit.GlobalOffset + h.maxSize
		truncated = true
		errs = append(errs, "max_size reached before ole estimate")
	}

	absPath, relPath, err := OutputPath(ctx.OutputDir, h.FileType(), h.extension, hit.GlobalOffset)
	if err != nil {
		return nil, err
	}
	stream, err := NewCarveStream(ctx.Evidence, absPath, hit.GlobalOffset, totalEnd-hit.GlobalOffset)
	if err != nil {
		return nil, err
	}
	if _, err := stream.ReadExact(totalEnd - hit.GlobalOffset); err != nil {
		_ = stream.Abort()
		return nil, err
	}
	if stream.BytesWritten() < totalEnd-hit.GlobalOffset {
		truncated = true
		errs = append(errs, "eof before ole estimate reached")
	}
	size, md5Hex, sha256Hex, err := stream.Finish()
	if err != nil {
		return nil, err
	}
	if size < h.minSize {
		_ = os.Remove(absPath)
		return nil, nil
	}

	globalEnd := hit.GlobalOffset
	if size > 0 {
		globalEnd = hit.GlobalOffset + size - 1
	}

	return &Result{
		RelativePath: relPath, Extension: h.extension,
		GlobalStart: hit.GlobalOffset, GlobalEnd: globalEnd, Size: size,
		MD5: md5Hex, SHA256: sha256Hex,
		Validated: !truncated, Truncated: truncated, Errors: errs,
		Timestamps: timestamps,
	}, nil
}

// readRootDirTimestamps reads the Root Entry directory entry (the first
// 128-byte entry of the first directory sector) and extracts its creation
// and modified FILETIME fields. Any failure to read or parse is silent;
// timestamps are an enrichment, never required to carve the file.
func readRootDirTimestamps(ctx Context, globalOffset int64, firstDirSector uint32, sectorSize int64, freesectThreshold uint32) map[string]time.Time {
	if firstDirSector >= freesectThreshold {
		return nil
	}
	dirSectorOffset := globalOffset + oleHeaderLen + int64(firstDirSector)*sectorSize
	entry := make([]byte, 128)
	n, err := ctx.Evidence.ReadAt(entry, dirSectorOffset)
	if err != nil || n < 128 {
		return nil
	}

	out := map[string]time.Time{}
	if created, ok := carvetime.FromOLEFILETIME(int64(binary.LittleEndian.Uint64(entry[100:108]))); ok {
		out["created"] = created
	}
	if modified, ok := carvetime.FromOLEFILETIME(int64(binary.LittleEndian.Uint64(entry[108:116]))); ok {
		out["modified"] = modified
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
