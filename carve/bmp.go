package carve

import (
	"encoding/binary"
	"os"
)

const (
	bmpHeaderLen = 14
	bmpMinHeader = 18
	bmpMaxDim    = 32768
)

var bmpValidDIBSizes = map[uint32]bool{12: true, 40: true, 52: true, 56: true, 108: true, 124: true}
var bmpValidBPP = map[uint16]bool{1: true, 4: true, 8: true, 16: true, 24: true, 32: true}

// BMPHandler carves length-declared BMP images: total length is read
// directly from the 14-byte file header, then sanity-checked against the
// DIB header before any bytes are streamed.
type BMPHandler struct {
	extension string
	minSize   int64
	maxSize   int64
}

// NewBMPHandler builds a BMP handler with the given extension and size caps.
func NewBMPHandler(extension string, minSize, maxSize int64) *BMPHandler {
	return &BMPHandler{extension: extension, minSize: minSize, maxSize: maxSize}
}

func (h *BMPHandler) FileType() string  { return "bmp" }
func (h *BMPHandler) Extension() string { return h.extension }

func (h *BMPHandler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	header := make([]byte, 58) // BMP header (14) + BITMAPINFOHEADER (40) + slack
	n, err := ctx.Evidence.ReadAt(header, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read bmp header", Err: err}
	}
	if n < bmpMinHeader {
		return nil, nil
	}
	if header[0] != 'B' || header[1] != 'M' {
		return nil, nil
	}

	fileSize := int64(binary.LittleEndian.Uint32(header[2:6]))
	pixelOffset := int64(binary.LittleEndian.Uint32(header[10:14]))

	if fileSize < bmpHeaderLen || pixelOffset < bmpHeaderLen || pixelOffset > fileSize {
		return nil, nil
	}

	dibSize := binary.LittleEndian.Uint32(header[14:18])
	if !bmpValidDIBSizes[dibSize] {
		return nil, nil
	}
	if pixelOffset < bmpHeaderLen+int64(dibSize) {
		return nil, nil
	}

	if dibSize >= 40 && n >= 26 {
		width := int32(binary.LittleEndian.Uint32(header[18:22]))
		height := int32(binary.LittleEndian.Uint32(header[22:26]))
		absWidth, absHeight := abs32(width), abs32(height)
		if width <= 0 || absWidth > bmpMaxDim || absHeight > bmpMaxDim {
			return nil, nil
		}

		if n >= 30 {
			bpp := binary.LittleEndian.Uint16(header[28:30])
			if !bmpValidBPP[bpp] {
				return nil, nil
			}
			rowSize := int64((uint32(absWidth)*uint32(bpp)+31)/32) * 4
			pixelDataSize := rowSize * int64(absHeight)
			minExpected := pixelOffset + pixelDataSize
			if fileSize < minExpected-1024 {
				return nil, nil
			}
		}
	}

	totalEnd := hit.GlobalOffset + fileSize
	var truncated bool
	var errs []string
	if h.maxSize > 0 && fileSize > h.maxSize {
		totalEnd = hit.GlobalOffset + h.maxSize
		truncated = true
		errs = append(errs, "max_size reached before BMP end")
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
	written := stream.BytesWritten()
	if written < totalEnd-hit.GlobalOffset {
		truncated = true
		errs = append(errs, "eof before BMP end")
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
		RelativePath: relPath,
		Extension:    h.extension,
		GlobalStart:  hit.GlobalOffset,
		GlobalEnd:    globalEnd,
		Size:         size,
		MD5:          md5Hex,
		SHA256:       sha256Hex,
		Validated:    !truncated,
		Truncated:    truncated,
		Errors:       errs,
	}, nil
}

func abs32(v int32) uint32 {
	if v < 0 {
		return uint32(-v)
	}
	return uint32(v)
}
