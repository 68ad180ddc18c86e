package carve

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/caseforge/filecarver/evidence"
)

const writeBlockSize = 64 * 1024

// OutputPath returns the deterministic path a carved file is written to:
// <root>/carved/<file_type>_<offset:016x>.<extension>. The parent
// directory is created on first use.
func OutputPath(root, fileType, extension string, offset int64) (absPath, relPath string, err error) {
	dir := filepath.Join(root, "carved")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("carve: create %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s_%016x.%s", fileType, offset, extension)
	absPath = filepath.Join(dir, name)
	relPath = filepath.Join("carved", name)
	return absPath, relPath, nil
}

// CarveStream wraps an output file, a rolling evidence offset, a
// byte-count limit (the effective max_size), and both hash contexts. Every
// byte that passes through ReadExact is written to the file and folded
// into both hashes in the same pass.
type CarveStream struct {
	ev       evidence.Source
	file     *os.File
	path     string
	offset   int64 // next evidence offset to read from
	start    int64
	limit    int64 // 0 means unlimited
	written  int64
	md5      hash.Hash
	sha256   hash.Hash
	buf      []byte
}

// NewCarveStream opens outPath and begins streaming from start, capped at
// limit bytes (0 for unlimited).
func NewCarveStream(ev evidence.Source, outPath string, start, limit int64) (*CarveStream, error) {
	f, err := os.Create(outPath)
	if err != nil {
		return nil, &Error{Kind: ErrIO, Reason: "create output file", Err: err}
	}
	return &CarveStream{
		ev:     ev,
		file:   f,
		path:   outPath,
		offset: start,
		start:  start,
		limit:  limit,
		md5:    md5.New(),
		sha256: sha256.New(),
		buf:    make([]byte, writeBlockSize),
	}, nil
}

// ReadExact reads up to n bytes from evidence starting at the stream's
// current offset, writes them through to the output file, and folds them
// into both hash contexts. It returns fewer than n bytes (without error) if
// the limit or evidence end is reached first, and the caller should treat
// a short read as Truncated/Eof per its own context.
func (s *CarveStream) ReadExact(n int64) ([]byte, error) {
	if s.limit > 0 {
		remaining := s.limit - s.written
		if remaining <= 0 {
			return nil, nil
		}
		if n > remaining {
			n = remaining
		}
	}

	result := make([]byte, 0, n)
	for int64(len(result)) < n {
		want := n - int64(len(result))
		if want > int64(len(s.buf)) {
			want = int64(len(s.buf))
		}
		read, err := s.ev.ReadAt(s.buf[:want], s.offset)
		if read > 0 {
			chunk := s.buf[:read]
			if _, werr := s.file.Write(chunk); werr != nil {
				return result, &Error{Kind: ErrIO, Reason: "write output file", Err: werr}
			}
			s.md5.Write(chunk)
			s.sha256.Write(chunk)
			result = append(result, chunk...)
			s.offset += int64(read)
			s.written += int64(read)
		}
		if err != nil {
			return result, &Error{Kind: ErrEvidence, Reason: "read evidence range", Err: err}
		}
		if read == 0 {
			break // end of evidence
		}
	}
	return result, nil
}

// BytesWritten returns the number of bytes streamed so far.
func (s *CarveStream) BytesWritten() int64 { return s.written }

// GlobalStart returns the evidence offset the stream began at.
func (s *CarveStream) GlobalStart() int64 { return s.start }

// Finish closes the output file and returns the final size and both
// hashes, hex-encoded.
func (s *CarveStream) Finish() (size int64, md5Hex, sha256Hex string, err error) {
	if cerr := s.file.Close(); cerr != nil {
		return s.written, "", "", &Error{Kind: ErrIO, Reason: "close output file", Err: cerr}
	}
	return s.written, hex.EncodeToString(s.md5.Sum(nil)), hex.EncodeToString(s.sha256.Sum(nil)), nil
}

// Abort closes and deletes the partially written output file, used when a
// handler rejects the hit after streaming has already begun.
func (s *CarveStream) Abort() error {
	_ = s.file.Close()
	return os.Remove(s.path)
}

// rehash recomputes a stream's running hashes over [start, start+written)
// by re-reading from evidence, used after a post-hoc truncation (the
// footer-terminated handler trims overshoot past a footer match).
func rehash(s *CarveStream) error {
	s.md5 = md5.New()
	s.sha256 = sha256.New()
	buf := make([]byte, writeBlockSize)
	remaining := s.written
	offset := s.start
	for remaining > 0 {
		want := remaining
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		n, err := s.ev.ReadAt(buf[:want], offset)
		if n > 0 {
			s.md5.Write(buf[:n])
			s.sha256.Write(buf[:n])
			offset += int64(n)
			remaining -= int64(n)
		}
		if err != nil {
			return &Error{Kind: ErrEvidence, Reason: "rehash range", Err: err}
		}
		if n == 0 {
			break
		}
	}
	return nil
}

// streamDeclaredLength is the shared "we already know the exact or
// estimated total length" carve path used by formats whose header declares
// (or lets us derive) a size up front: stream totalSize bytes (capped by
// maxSize), finish, and apply the min_size floor.
func streamDeclaredLength(ctx Context, hit Hit, fileType, extension string, totalSize, minSize, maxSize int64, reasonTag string) (*Result, error) {
	totalEnd := hit.GlobalOffset + totalSize
	var truncated bool
	var errs []string
	if maxSize > 0 && totalSize > maxSize {
		totalEnd = hit.GlobalOffset + maxSize
		truncated = true
		errs = append(errs, "max_size reached before "+reasonTag+" end")
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
		errs = append(errs, "eof before "+reasonTag+" end")
	}
	size, md5Hex, sha256Hex, err := stream.Finish()
	if err != nil {
		return nil, err
	}
	if size < minSize {
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
	}, nil
}

// WriteRange reads [start, end) from ev in writeBlockSize blocks, appending
// to sink and folding every block into md5H and sha256H. It returns the
// actual bytes written and whether evidence ended before reaching end.
func WriteRange(ev evidence.Source, start, end int64, sink io.Writer, md5H, sha256H hash.Hash) (written int64, eofTruncated bool, err error) {
	buf := make([]byte, writeBlockSize)
	offset := start
	for offset < end {
		want := end - offset
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}
		n, rerr := ev.ReadAt(buf[:want], offset)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				return written, false, &Error{Kind: ErrIO, Reason: "write range", Err: werr}
			}
			md5H.Write(buf[:n])
			sha256H.Write(buf[:n])
			written += int64(n)
			offset += int64(n)
		}
		if rerr != nil {
			return written, false, &Error{Kind: ErrEvidence, Reason: "read range", Err: rerr}
		}
		if n == 0 {
			return written, true, nil
		}
	}
	return written, false, nil
}
