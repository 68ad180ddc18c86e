package carve

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/caseforge/filecarver/internal/carvetime"
)

var (
	zipLocalFileSig  = []byte{0x50, 0x4B, 0x03, 0x04}
	zipCentralDirSig = []byte{0x50, 0x4B, 0x01, 0x02}
	zipEOCDSig       = []byte{0x50, 0x4B, 0x05, 0x06}
)

// ZIPHandler carves ZIP archives, and, by peeking the local file headers'
// filenames, the ZIP-based container formats OOXML (docx/xlsx/pptx), ODF,
// EPUB, and JAR, by walking local-file-header records until the
// end-of-central-directory sentinel.
type ZIPHandler struct {
	extension string
	minSize   int64
	maxSize   int64
}

// NewZIPHandler builds a ZIP-family handler.
func NewZIPHandler(extension string, minSize, maxSize int64) *ZIPHandler {
	return &ZIPHandler{extension: extension, minSize: minSize, maxSize: maxSize}
}

func (h *ZIPHandler) FileType() string  { return "zip" }
func (h *ZIPHandler) Extension() string { return h.extension }

const zipMaxWalk = 1 << 26 // 64 MiB ceiling on how far we walk looking for EOCD

func (h *ZIPHandler) ProcessHit(hit Hit, ctx Context) (*Result, error) {
	sig := make([]byte, 4)
	n, err := ctx.Evidence.ReadAt(sig, hit.GlobalOffset)
	if err != nil {
		return nil, &Error{Kind: ErrEvidence, Reason: "read zip signature", Err: err}
	}
	if n < 4 || !equalBytes(sig, zipLocalFileSig) {
		return nil, nil
	}

	offset := hit.GlobalOffset
	var filenames []string
	var mimetype string
	eocdFound := false
	var timestamps map[string]time.Time

walk:
	for walked := int64(0); walked < zipMaxWalk; {
		sig := make([]byte, 4)
		n, rerr := ctx.Evidence.ReadAt(sig, offset)
		if rerr != nil || n < 4 {
			break
		}
		switch {
		case equalBytes(sig, zipLocalFileSig):
			hdr := make([]byte, 30)
			hn, herr := ctx.Evidence.ReadAt(hdr, offset)
			if herr != nil || hn < 30 {
				break walk
			}
			method := binary.LittleEndian.Uint16(hdr[8:10])
			compSize := int64(binary.LittleEndian.Uint32(hdr[18:22]))
			nameLen := int64(binary.LittleEndian.Uint16(hdr[26:28]))
			extraLen := int64(binary.LittleEndian.Uint16(hdr[28:30]))
			flags := binary.LittleEndian.Uint16(hdr[6:8])

			name := make([]byte, nameLen)
			_, _ = ctx.Evidence.ReadAt(name, offset+30)
			filenames = append(filenames, string(name))

			// The ODF spec requires the "mimetype" entry be the first entry,
			// stored uncompressed, so its content identifies the exact ODF
			// flavor (text/spreadsheet/presentation) that content.xml alone
			// cannot distinguish.
			if string(name) == "mimetype" && method == 0 && compSize > 0 && compSize < 256 {
				mt := make([]byte, compSize)
				if _, merr := ctx.Evidence.ReadAt(mt, offset+30+nameLen+extraLen); merr == nil {
					mimetype = string(mt)
				}
			}

			if offset == hit.GlobalOffset {
				modTime := binary.LittleEndian.Uint16(hdr[10:12])
				modDate := binary.LittleEndian.Uint16(hdr[12:14])
				if t, ok := carvetime.FromDOSDateTime(modDate, modTime); ok {
					timestamps = map[string]time.Time{"modified": t}
				}
			}

			entryLen := int64(30) + nameLen + extraLen + compSize
			if flags&0x08 != 0 {
				// data descriptor present: sizes are unknown here, so only
				// the header is skipped. The next read lands inside the
				// entry's data, the walk stops there without reaching the
				// end-of-central-directory record, and the hit is rejected.
				entryLen = int64(30) + nameLen + extraLen
			}
			offset += entryLen
			walked += entryLen
		case equalBytes(sig, zipCentralDirSig):
			hdr := make([]byte, 46)
			hn, herr := ctx.Evidence.ReadAt(hdr, offset)
			if herr != nil || hn < 46 {
				break walk
			}
			nameLen := int64(binary.LittleEndian.Uint16(hdr[28:30]))
			extraLen := int64(binary.LittleEndian.Uint16(hdr[30:32]))
			commentLen := int64(binary.LittleEndian.Uint16(hdr[32:34]))
			entryLen := int64(46) + nameLen + extraLen + commentLen
			offset += entryLen
			walked += entryLen
		case equalBytes(sig, zipEOCDSig):
			tail := make([]byte, 22)
			tn, terr := ctx.Evidence.ReadAt(tail, offset)
			if terr != nil || tn < 22 {
				break walk
			}
			commentLen := int64(binary.LittleEndian.Uint16(tail[20:22]))
			offset += 22 + commentLen
			eocdFound = true
			break walk
		default:
			break walk
		}
	}

	if !eocdFound {
		return nil, nil
	}

	extension := h.extension
	fileType := h.FileType()
	switch container := peekContainer(filenames, mimetype); container {
	case "docx", "xlsx", "pptx", "odt", "ods", "odp":
		extension, fileType = container, container
	case "epub":
		extension, fileType = "epub", "epub"
	case "jar":
		extension, fileType = "jar", "jar"
	}

	totalSize := offset - hit.GlobalOffset
	totalEnd := offset
	var truncated bool
	var errs []string
	if h.maxSize > 0 && totalSize > h.maxSize {
		totalEnd = hit.GlobalOffset + h.maxSize
		truncated = true
		errs = append(errs, "max_size reached before zip end")
	}

	absPath, relPath, err := OutputPath(ctx.OutputDir, fileType, extension, hit.GlobalOffset)
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
		errs = append(errs, "eof before zip end")
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
		RelativePath: relPath, Extension: extension,
		GlobalStart: hit.GlobalOffset, GlobalEnd: globalEnd, Size: size,
		MD5: md5Hex, SHA256: sha256Hex,
		Validated: !truncated, Truncated: truncated, Errors: errs,
		Timestamps: timestamps,
	}, nil
}

// peekContainer inspects the filenames read from local file headers (and, for ODF
// packages, the stored "mimetype" entry's content) to recognize a
// ZIP-based container format.
func peekContainer(names []string, mimetype string) string {
	has := func(s string) bool {
		for _, n := range names {
			if n == s {
				return true
			}
		}
		return false
	}
	switch {
	case has("word/document.xml"):
		return "docx"
	case has("xl/workbook.xml"):
		return "xlsx"
	case has("ppt/presentation.xml"):
		return "pptx"
	case has("META-INF/container.xml"):
		return "epub"
	case has("META-INF/MANIFEST.MF"):
		return "jar"
	case has("content.xml") && has("mimetype"):
		switch mimetype {
		case "application/vnd.oasis.opendocument.spreadsheet":
			return "ods"
		case "application/vnd.oasis.opendocument.presentation":
			return "odp"
		default:
			return "odt"
		}
	default:
		return ""
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
