package evidence

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/caseforge/filecarver/internal/logger"
)

// FileConfig configures a local-file evidence source: a raw disk image or a
// device node opened for random-access reads.
type FileConfig struct {
	Path string

	// Readahead, when true, advises the kernel that the file will be read
	// mostly sequentially (POSIX_FADV_SEQUENTIAL). Harmless to set for
	// device nodes; ignored on platforms without fadvise.
	Readahead bool
}

func (c FileConfig) Open() (Source, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("evidence: open %s: %w", c.Path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("evidence: stat %s: %w", c.Path, err)
	}

	src := &File{
		path: c.Path,
		file: f,
		size: stat.Size(),
	}

	if c.Readahead && runtime.GOOS == "linux" {
		if err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL); err != nil {
			logger.Log.Warn("evidence: fadvise hint failed for {path}: {error}", c.Path, err)
		}
	}

	return src, nil
}

// File is the default Evidence Source: a local raw image or device file.
// ReadAt is safe for concurrent use; *os.File.ReadAt does not share a
// cursor across calls, so no additional synchronization is required.
type File struct {
	file   *os.File
	path   string
	size   int64
	closed atomic.Bool
}

// NewFile opens path as a local evidence source. Equivalent to
// FileConfig{Path: path}.Open().
func NewFile(path string) (*File, error) {
	src, err := FileConfig{Path: path}.Open()
	if err != nil {
		return nil, err
	}
	return src.(*File), nil
}

func (f *File) Len() int64 { return f.size }

func (f *File) Name() string { return f.path }

func (f *File) ReadAt(buf []byte, offset int64) (int, error) {
	if f.closed.Load() {
		return 0, &Error{Kind: ErrIO, Op: "read_at", Err: os.ErrClosed}
	}
	if offset >= f.size {
		return 0, nil
	}
	n, err := f.file.ReadAt(buf, offset)
	if err != nil {
		if errors.Is(err, io.EOF) {
			// A short read at end-of-file is expected; callers loop.
			return n, nil
		}
		return n, &Error{Kind: ErrIO, Op: "read_at", Err: err}
	}
	return n, nil
}

func (f *File) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	return f.file.Close()
}
