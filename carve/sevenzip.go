package carve

import "encoding/binary"

var sevenZipMagic = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}

// SevenZipHandler carves 7-Zip archives. The 32-byte signature header
// declares the next-header offset and size directly, so total length is
// exact: header(32) + NextHeaderOffset + NextHeaderSize.
type SevenZipHandler struct {
	extension string
	minSize   int64
	maxSize   int64
}

// NewSevenZipHandler builds a 7z handler.
func NewSevenZipHandler(extension string, minSize, maxSize int64) *SevenZipHandler {
	return &SevenZipHandler{extension: extension, minSize: minSize, maxSize: maxSize}
}

func (h *SevenZipHandler) FileType() string  { return "7z" }
func (h *SevenZipHandler) Extension() string { return h.extension }

func (h *SevenZipHandler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	header := make([]byte, 32)
	n, err := ctx.Evidence.ReadAt(header, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read 7z header", Err: err}
	}
	if n < 32 || !equalBytes(header[:6], sevenZipMagic) {
		return nil, nil
	}

	nextHeaderOffset := int64(binary.LittleEndian.Uint64(header[12:20]))
	nextHeaderSize := int64(binary.LittleEndian.Uint64(header[20:28]))
	if nextHeaderOffset < 0 || nextHeaderSize < 0 {
		return nil, nil
	}

	totalSize := int64(32) + nextHeaderOffset + nextHeaderSize
	return streamDeclaredLength(ctx, hit, h.FileType(), h.extension, totalSize, h.minSize, h.maxSize, "7z")
}
