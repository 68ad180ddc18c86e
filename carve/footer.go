package carve

import (
	"bytes"
	"os"
)

const footerScanBlock = 64 * 1024

// footerTerminatedHandler carves any format whose end is marked by a
// trailing byte sequence rather than a declared length: JPEG (FF D9), PNG
// (IEND chunk trailer), GIF (trailer 00 3B). Magic is re-validated, then
// bytes stream through in blocks while searching for footer; the output
// ends the byte after the footer. Reaching max_size first marks truncated.
type footerTerminatedHandler struct {
	fileType  string
	extension string
	magic     []byte
	footer    []byte
	minSize   int64
	maxSize   int64
}

// NewJPEGHandler carves JPEG images, terminated by the FF D9 EOI marker.
func NewJPEGHandler(extension string, minSize, maxSize int64) Handler {
	return &footerTerminatedHandler{
		fileType: "jpeg", extension: extension,
		magic: []byte{0xFF, 0xD8, 0xFF}, footer: []byte{0xFF, 0xD9},
		minSize: minSize, maxSize: maxSize,
	}
}

// NewPNGHandler carves PNG images, terminated by the IEND chunk trailer.
func NewPNGHandler(extension string, minSize, maxSize int64) Handler {
	return &footerTerminatedHandler{
		fileType: "png", extension: extension,
		magic:   []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
		footer:  []byte{0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82},
		minSize: minSize, maxSize: maxSize,
	}
}

// NewGIFHandler carves GIF images, terminated by the trailer byte 0x3B
// preceded by the block terminator 0x00.
func NewGIFHandler(extension string, minSize, maxSize int64) Handler {
	return &footerTerminatedHandler{
		fileType: "gif", extension: extension,
		magic: []byte{0x47, 0x49, 0x46, 0x38}, footer: []byte{0x00, 0x3B},
		minSize: minSize, maxSize: maxSize,
	}
}

func (h *footerTerminatedHandler) FileType() string  { return h.fileType }
func (h *footerTerminatedHandler) Extension() string { return h.extension }

func (h *footerTerminatedHandler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	magicBuf := make([]byte, len(h.magic))
	n, err := ctx.Evidence.ReadAt(magicBuf, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read magic", Err: err}
	}
	if n < len(h.magic) || !bytes.Equal(magicBuf, h.magic) {
		return nil, nil
	}

	absPath, relPath, err := OutputPath(ctx.OutputDir, h.fileType, h.extension, hit.GlobalOffset)
	if err != nil {
		return nil, err
	}

	limit := h.maxSize // 0 means unlimited
	stream, err := NewCarveStream(ctx.Evidence, absPath, hit.GlobalOffset, limit)
	if err != nil {
		return nil, err
	}

	var truncated bool
	var errs []string
	found := false

	// carry the trailing (len(footer)-1) bytes already written across block
	// boundaries so the footer isn't missed when it straddles a read.
	var tail []byte
	for {
		block, rerr := stream.ReadExact(footerScanBlock)
		if rerr != nil {
			_ = stream.Abort()
			return nil, rerr
		}
		search := append(tail, block...)
		if idx := bytes.Index(search, h.footer); idx != -1 {
			// idx is relative to `search`; the footer ends within this
			// window. Since CarveStream already wrote every byte read, the
			// stream's current write position already includes the bytes
			// past the footer end if the footer wasn't at the tail of
			// `block`. Trim the excess by reopening isn't possible on a
			// stream; instead compute overshoot and truncate the file.
			footerEndInSearch := idx + len(h.footer)
			overshoot := len(search) - footerEndInSearch
			if overshoot > 0 {
				if err := truncateStream(stream, overshoot); err != nil {
					_ = stream.Abort()
					return nil, err
				}
			}
			found = true
			break
		}
		if len(block) == 0 {
			break // end of evidence, footer never found
		}
		if len(search) >= len(h.footer)-1 {
			tail = append(tail[:0], search[len(search)-(len(h.footer)-1):]...)
		} else {
			tail = append(tail[:0], search...)
		}
		if limit > 0 && stream.BytesWritten() >= limit {
			break
		}
	}

	if !found {
		if limit > 0 && stream.BytesWritten() >= limit {
			truncated = true
			errs = append(errs, "max_size reached before footer")
		} else {
			truncated = true
			errs = append(errs, "eof before footer")
		}
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

// truncateStream trims the last n bytes from a stream's output file. Since
// CarveStream hashes as it writes, a trim after the fact means the final
// hash must be recomputed over the kept prefix; truncateStream does that
// itself by re-reading the kept evidence range, so Finish reports the
// footer-exact hashes.
func truncateStream(s *CarveStream, n int) error {
	s.written -= int64(n)
	info, err := s.file.Stat()
	if err != nil {
		return &Error{Kind: ErrIO, Reason: "stat output file", Err: err}
	}
	if err := s.file.Truncate(info.Size() - int64(n)); err != nil {
		return &Error{Kind: ErrIO, Reason: "truncate output file", Err: err}
	}
	// Recompute hashes over the kept prefix: reset and rehash from the
	// evidence range now that the file's true boundary is known.
	return rehash(s)
}
