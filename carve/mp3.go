package carve

import "os"

// mp3BitrateKbpsV1L3 is indexed by the 4-bit bitrate index and covers MPEG1
// Layer III only, the overwhelmingly common case in carved evidence.
var mp3BitrateKbpsV1L3 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
var mp3SampleRateV1 = [4]int{44100, 48000, 32000, 0}

// MP3Handler carves MP3 audio by locating the sync word and walking frame
// headers to accumulate a total length. The sync word is short (11 bits),
// so this handler is inherently prone to false positives on random binary
// data; callers should tolerate extraneous small outputs or post-filter,
// per the format's documented caveat.
type MP3Handler struct {
	extension string
	minSize   int64
	maxSize   int64
}

// NewMP3Handler builds an MP3 handler.
func NewMP3Handler(extension string, minSize, maxSize int64) *MP3Handler {
	return &MP3Handler{extension: extension, minSize: minSize, maxSize: maxSize}
}

func (h *MP3Handler) FileType() string  { return "mp3" }
func (h *MP3Handler) Extension() string { return h.extension }

// frameLength returns the byte length of one MPEG1 Layer III frame given
// its 4-byte header, or 0 if the header is not a valid frame header.
func frameLength(header []byte) int {
	if len(header) < 4 {
		return 0
	}
	if header[0] != 0xFF || header[1]&0xE0 != 0xE0 {
		return 0
	}
	versionBits := (header[1] >> 3) & 0x03
	layerBits := (header[1] >> 1) & 0x03
	if versionBits != 0x03 || layerBits != 0x01 { // MPEG1, Layer III only
		return 0
	}
	bitrateIdx := (header[2] >> 4) & 0x0F
	sampleIdx := (header[2] >> 2) & 0x03
	padding := (header[2] >> 1) & 0x01
	if bitrateIdx == 0 || bitrateIdx == 0x0F || sampleIdx == 0x03 {
		return 0
	}
	bitrate := mp3BitrateKbpsV1L3[bitrateIdx]
	sampleRate := mp3SampleRateV1[sampleIdx]
	if bitrate == 0 || sampleRate == 0 {
		return 0
	}
	length := (144 * bitrate * 1000 / sampleRate) + int(padding)
	return length
}

func (h *MP3Handler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	const maxFrames = 1 << 20 // generous upper bound on frames walked per hit
	header := make([]byte, 4)
	n, err := ctx.Evidence.ReadAt(header, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read mp3 frame header", Err: err}
	}
	if n < 4 {
		return nil, nil
	}
	firstLen := frameLength(header)
	if firstLen == 0 {
		return nil, nil
	}

	total := int64(0)
	offset := hit.GlobalOffset
	for frames := 0; frames < maxFrames; frames++ {
		hdr := make([]byte, 4)
		hn, rerr := ctx.Evidence.ReadAt(hdr, offset)
		if rerr != nil || hn < 4 {
			break
		}
		length := frameLength(hdr)
		if length == 0 {
			break
		}
		total += int64(length)
		offset += int64(length)
	}
	if total == 0 {
		return nil, nil
	}

	totalEnd := hit.GlobalOffset + total
	var truncated bool
	var errs []string
	if h.maxSize > 0 && total > h.maxSize {
		totalEnd = hit.GlobalOffset + h.maxSize
		truncated = true
		errs = append(errs, "max_size reached before mp3 frame walk completed")
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
		errs = append(errs, "eof before mp3 frame walk completed")
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
