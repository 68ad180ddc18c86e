package carve

import "github.com/caseforge/filecarver/evidence"

// byteSource is a fixed in-memory evidence.Source backing unit tests, so a
// handler's ProcessHit can be exercised without writing a temp file.
type byteSource struct {
	data []byte
}

func newByteSource(data []byte) *byteSource { return &byteSource{data: data} }

func (b *byteSource) Len() int64 { return int64(len(b.data)) }

func (b *byteSource) ReadAt(buf []byte, offset int64) (int, error) {
	if offset >= int64(len(b.data)) {
		return 0, nil
	}
	n := copy(buf, b.data[offset:])
	return n, nil
}

func (b *byteSource) Name() string { return "bytes" }

func (b *byteSource) Close() error { return nil }

var _ evidence.Source = (*byteSource)(nil)
