package carve

import (
	"encoding/binary"
	"os"
)

var sqliteMagic = []byte("SQLite format 3\x00")

// SQLiteHandler carves SQLite database files: the 100-byte header declares
// page size and page count directly, so total length is exact rather than
// estimated.
type SQLiteHandler struct {
	extension string
	minSize   int64
	maxSize   int64
}

// NewSQLiteHandler builds a SQLite handler.
func NewSQLiteHandler(extension string, minSize, maxSize int64) *SQLiteHandler {
	return &SQLiteHandler{extension: extension, minSize: minSize, maxSize: maxSize}
}

func (h *SQLiteHandler) FileType() string  { return "sqlite" }
func (h *SQLiteHandler) Extension() string { return h.extension }

func (h *SQLiteHandler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	header := make([]byte, 100)
	n, err := ctx.Evidence.ReadAt(header, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read sqlite header", Err: err}
	}
	if n < 100 || string(header[:16]) != string(sqliteMagic) {
		return nil, nil
	}

	pageSize := int64(binary.BigEndian.Uint16(header[16:18]))
	if pageSize == 1 {
		pageSize = 65536 // the magic value 1 means 64 KiB pages
	}
	if pageSize < 512 || (pageSize&(pageSize-1)) != 0 {
		return nil, nil // page size must be a power of two, >= 512
	}
	pageCount := int64(binary.BigEndian.Uint32(header[28:32]))
	if pageCount <= 0 {
		return nil, nil
	}

	totalSize := pageSize * pageCount

	totalEnd := hit.GlobalOffset + totalSize
	var truncated bool
	var errs []string
	if h.maxSize > 0 && totalSize > h.maxSize {
		totalEnd = hit.GlobalOffset + h.maxSize
		truncated = true
		errs = append(errs, "max_size reached before sqlite end")
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
		errs = append(errs, "eof before sqlite end")
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
