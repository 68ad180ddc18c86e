package carve

import "encoding/binary"

var (
	rar4Magic = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}       // "Rar!\x1A\x07\x00"
	rar5Magic = []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00} // "Rar!\x1A\x07\x01\x00"
)

// RARHandler carves RAR archives. Neither RAR4 nor RAR5 declares a total
// archive size in its signature, so this handler walks the block chain
// (RAR4's fixed-layout headers, RAR5's vint-encoded headers) accumulating
// header+data lengths until it reaches an end-of-archive marker or can no
// longer parse a block, then carves exactly that accumulated span.
type RARHandler struct {
	extension string
	minSize   int64
	maxSize   int64
}

// NewRARHandler builds a RAR handler.
func NewRARHandler(extension string, minSize, maxSize int64) *RARHandler {
	return &RARHandler{extension: extension, minSize: minSize, maxSize: maxSize}
}

func (h *RARHandler) FileType() string  { return "rar" }
func (h *RARHandler) Extension() string { return h.extension }

const rarMaxWalk = 1 << 27 // 128 MiB ceiling on how far we walk the block chain

func (h *RARHandler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	sig := make([]byte, 8)
	n, err := ctx.Evidence.ReadAt(sig, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read rar signature", Err: err}
	}

	var totalSize int64
	switch {
	case n >= 8 && equalBytes(sig[:8], rar5Magic):
		totalSize = h.walkRAR5(ctx, hit.GlobalOffset+8) + 8
	case n >= 7 && equalBytes(sig[:7], rar4Magic):
		totalSize = h.walkRAR4(ctx, hit.GlobalOffset+7) + 7
	default:
		return nil, nil
	}
	if totalSize <= 0 {
		return nil, nil
	}

	return streamDeclaredLength(ctx, hit, h.FileType(), h.extension, totalSize, h.minSize, h.maxSize, "rar")
}

// walkRAR4 walks fixed-layout RAR4 block headers starting at the absolute
// evidence offset start and returns the total span walked.
func (h *RARHandler) walkRAR4(ctx Context, start int64) int64 {
	offset := start
	for walked := int64(0); walked < rarMaxWalk; {
		hdr := make([]byte, 7)
		n, err := ctx.Evidence.ReadAt(hdr, offset)
		if err != nil || n < 7 {
			break
		}
		headType := hdr[2]
		flags := binary.LittleEndian.Uint16(hdr[3:5])
		headSize := int64(binary.LittleEndian.Uint16(hdr[5:7]))
		if headSize < 7 {
			break
		}
		blockLen := headSize
		if flags&0x8000 != 0 { // LONG_BLOCK: extra data area follows the header
			extra := make([]byte, 4)
			if n, err := ctx.Evidence.ReadAt(extra, offset+7); err == nil && n == 4 {
				blockLen += int64(binary.LittleEndian.Uint32(extra))
			}
		}
		offset += blockLen
		walked += blockLen
		if headType == 0x7B { // end of archive block
			break
		}
	}
	return offset - start
}

// walkRAR5 walks RAR5's vint-length-prefixed block headers.
func (h *RARHandler) walkRAR5(ctx Context, start int64) int64 {
	offset := start
	for walked := int64(0); walked < rarMaxWalk; {
		// each block begins with a CRC32 (4 bytes) then a vint header size
		prefix := make([]byte, 4+10)
		n, err := ctx.Evidence.ReadAt(prefix, offset)
		if err != nil || n < 5 {
			break
		}
		headerSize, vintLen, ok := readVint(prefix[4:n])
		if !ok || headerSize <= 0 {
			break
		}
		headerStart := offset + 4 + int64(vintLen)
		headerBody := make([]byte, headerSize)
		if n, err := ctx.Evidence.ReadAt(headerBody, headerStart); err != nil || int64(n) < headerSize {
			break
		}
		headType, typeLen, ok := readVint(headerBody)
		if !ok {
			break
		}
		body := headerBody[typeLen:]
		flags, flagsLen, ok := readVint(body)
		if !ok {
			break
		}
		body = body[flagsLen:]
		if flags&0x01 != 0 { // HFL_EXTRA: extra area size prefix to skip over
			_, n, ok := readVint(body)
			if !ok {
				break
			}
			body = body[n:]
		}
		var dataSize int64
		if flags&0x02 != 0 { // HFL_DATA: data area size follows
			ds, _, ok := readVint(body)
			if !ok {
				break
			}
			dataSize = ds
		}

		blockLen := (headerStart - offset) + headerSize + dataSize
		offset += blockLen
		walked += blockLen
		if headType == 5 { // HEAD_ENDARC
			break
		}
	}
	return offset - start
}

// readVint decodes a RAR5 variable-length integer (7 bits per byte,
// little-endian, high bit set means "more bytes follow").
func readVint(b []byte) (value int64, n int, ok bool) {
	var shift uint
	for i := 0; i < len(b) && i < 10; i++ {
		value |= int64(b[i]&0x7F) << shift
		if b[i]&0x80 == 0 {
			return value, i + 1, true
		}
		shift += 7
	}
	return 0, 0, false
}
