package carve

import (
	"encoding/binary"
	"os"
	"time"
)

// tiffTagDateTime is the standard ASCII "YYYY:MM:DD HH:MM:SS" timestamp tag.
const tiffTagDateTime = 306

// TIFFHandler carves TIFF images by validating the byte-order mark and the
// fixed 42 magic, then walking the IFD chain to find the highest byte
// offset any IFD entry's value references, a conservative end-of-file
// estimate since TIFF carries no single declared total length.
type TIFFHandler struct {
	extension string
	minSize   int64
	maxSize   int64
}

// NewTIFFHandler builds a TIFF handler.
func NewTIFFHandler(extension string, minSize, maxSize int64) *TIFFHandler {
	return &TIFFHandler{extension: extension, minSize: minSize, maxSize: maxSize}
}

func (h *TIFFHandler) FileType() string  { return "tiff" }
func (h *TIFFHandler) Extension() string { return h.extension }

func (h *TIFFHandler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	const probeLen = 1 << 20 // 1 MiB probe window, enough for most IFD chains
	probe := make([]byte, probeLen)
	n, err := ctx.Evidence.ReadAt(probe, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read tiff probe", Err: err}
	}
	if n < 8 {
		return nil, nil
	}
	probe = probe[:n]

	var order binary.ByteOrder
	switch {
	case probe[0] == 0x49 && probe[1] == 0x49:
		order = binary.LittleEndian
	case probe[0] == 0x4D && probe[1] == 0x4D:
		order = binary.BigEndian
	default:
		return nil, nil
	}
	if order.Uint16(probe[2:4]) != 42 {
		return nil, nil
	}

	maxOffset := int64(8)
	ifdOffset := int64(order.Uint32(probe[4:8]))
	visited := map[int64]bool{}
	var modified time.Time
	for ifdOffset != 0 && !visited[ifdOffset] && ifdOffset+2 <= int64(len(probe)) {
		visited[ifdOffset] = true
		if ifdOffset > maxOffset {
			maxOffset = ifdOffset
		}
		count := int64(order.Uint16(probe[ifdOffset : ifdOffset+2]))
		entriesEnd := ifdOffset + 2 + count*12
		if entriesEnd+4 > int64(len(probe)) {
			break
		}
		for i := int64(0); i < count; i++ {
			entryOff := ifdOffset + 2 + i*12
			tag := order.Uint16(probe[entryOff : entryOff+2])
			valueOffset := int64(order.Uint32(probe[entryOff+8 : entryOff+12]))
			if valueOffset > maxOffset {
				maxOffset = valueOffset
			}
			if tag == tiffTagDateTime && modified.IsZero() && valueOffset+20 <= int64(len(probe)) {
				if t, err := time.Parse("2006:01:02 15:04:05", string(probe[valueOffset:valueOffset+19])); err == nil {
					modified = t.UTC()
				}
			}
		}
		next := int64(order.Uint32(probe[entriesEnd : entriesEnd+4]))
		if next == ifdOffset {
			break
		}
		ifdOffset = next
		if ifdOffset > maxOffset {
			maxOffset = ifdOffset
		}
	}

	estimatedSize := maxOffset + 4096 // trailing slack for the last IFD's data

	totalEnd := hit.GlobalOffset + estimatedSize
	var truncated bool
	var errs []string
	if h.maxSize > 0 && estimatedSize > h.maxSize {
		totalEnd = hit.GlobalOffset + h.maxSize
		truncated = true
		errs = append(errs, "max_size reached before tiff estimate")
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
		errs = append(errs, "eof before tiff estimate reached")
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

	var timestamps map[string]time.Time
	if !modified.IsZero() {
		timestamps = map[string]time.Time{"modified": modified}
	}

	return &Result{
		RelativePath: relPath, Extension: h.extension,
		GlobalStart: hit.GlobalOffset, GlobalEnd: globalEnd, Size: size,
		MD5: md5Hex, SHA256: sha256Hex,
		Validated: !truncated, Truncated: truncated, Errors: errs,
		Timestamps: timestamps,
	}, nil
}
