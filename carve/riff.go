package carve

import (
	"encoding/binary"
	"os"
)

var riffMagic = [4]byte{'R', 'I', 'F', 'F'}

// parseRIFFHeader validates a 12-byte RIFF header and returns its form type
// and total declared size (chunk_size + 8, the 8-byte RIFF preamble).
func parseRIFFHeader(header []byte) (formType [4]byte, totalSize int64, ok bool) {
	if len(header) < 12 {
		return formType, 0, false
	}
	if header[0] != riffMagic[0] || header[1] != riffMagic[1] || header[2] != riffMagic[2] || header[3] != riffMagic[3] {
		return formType, 0, false
	}
	chunkSize := binary.LittleEndian.Uint32(header[4:8])
	copy(formType[:], header[8:12])
	return formType, int64(chunkSize) + 8, true
}

// RIFFHandler carves any RIFF-container format (WAV, AVI, WebP), sharing
// one length-declared parse: total size is chunk_size+8 from the 12-byte
// preamble, and the declared form type must match the configured one.
type RIFFHandler struct {
	fileType  string
	form      [4]byte
	extension string
	minSize   int64
	maxSize   int64
}

// NewWAVHandler builds a RIFF handler for the "WAVE" form.
func NewWAVHandler(extension string, minSize, maxSize int64) *RIFFHandler {
	return &RIFFHandler{fileType: "wav", form: [4]byte{'W', 'A', 'V', 'E'}, extension: extension, minSize: minSize, maxSize: maxSize}
}

// NewAVIHandler builds a RIFF handler for the "AVI " form.
func NewAVIHandler(extension string, minSize, maxSize int64) *RIFFHandler {
	return &RIFFHandler{fileType: "avi", form: [4]byte{'A', 'V', 'I', ' '}, extension: extension, minSize: minSize, maxSize: maxSize}
}

// NewWebPHandler builds a RIFF handler for the "WEBP" form.
func NewWebPHandler(extension string, minSize, maxSize int64) *RIFFHandler {
	return &RIFFHandler{fileType: "webp", form: [4]byte{'W', 'E', 'B', 'P'}, extension: extension, minSize: minSize, maxSize: maxSize}
}

func (h *RIFFHandler) FileType() string  { return h.fileType }
func (h *RIFFHandler) Extension() string { return h.extension }

func (h *RIFFHandler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	header := make([]byte, 12)
	n, err := ctx.Evidence.ReadAt(header, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read riff header", Err: err}
	}
	if n < 12 {
		return nil, nil
	}
	form, totalSize, ok := parseRIFFHeader(header)
	if !ok || form != h.form {
		return nil, nil
	}

	totalEnd := hit.GlobalOffset + totalSize
	var truncated bool
	var errs []string
	if h.maxSize > 0 && totalSize > h.maxSize {
		totalEnd = hit.GlobalOffset + h.maxSize
		truncated = true
		errs = append(errs, "max_size reached before riff end")
	}

	absPath, relPath, err := OutputPath(ctx.OutputDir, h.fileType, h.extension, hit.GlobalOffset)
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
		errs = append(errs, "eof before riff end")
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
	}, nil
}
