// Package registry maps a configured file-type id to its stateless carve
// handler: a read-only, O(1) lookup table built once at startup.
package registry

import (
	"fmt"

	"github.com/caseforge/filecarver/carve"
)

// Registry is immutable after New returns.
type Registry struct {
	handlers map[string]carve.Handler
}

// Entry names a configured file type: its validator selector (one of the
// identifiers below), extension, and size bounds.
type Entry struct {
	FileTypeID string
	Validator  string
	Extension  string
	MinSize    int64
	MaxSize    int64
}

// New builds a Registry from configured entries, instantiating each named
// validator. Unknown validator selectors are a construction-time error;
// a registry is never partially built.
func New(entries []Entry) (*Registry, error) {
	handlers := make(map[string]carve.Handler, len(entries))
	for _, e := range entries {
		h, err := newHandler(e)
		if err != nil {
			return nil, fmt.Errorf("registry: file type %q: %w", e.FileTypeID, err)
		}
		handlers[e.FileTypeID] = h
	}
	return &Registry{handlers: handlers}, nil
}

// Lookup returns the handler registered for fileTypeID, or false if none
// was configured.
func (r *Registry) Lookup(fileTypeID string) (carve.Handler, bool) {
	h, ok := r.handlers[fileTypeID]
	return h, ok
}

// FileTypes returns every configured file-type id, unordered.
func (r *Registry) FileTypes() []string {
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	return ids
}

// newHandler dispatches on the validator selector naming one of the
// built-in carve handlers.
func newHandler(e Entry) (carve.Handler, error) {
	switch e.Validator {
	case "bmp":
		return carve.NewBMPHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "wav":
		return carve.NewWAVHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "avi":
		return carve.NewAVIHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "webp":
		return carve.NewWebPHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "ole":
		return carve.NewOLEHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "jpeg":
		return carve.NewJPEGHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "png":
		return carve.NewPNGHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "gif":
		return carve.NewGIFHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "tiff":
		return carve.NewTIFFHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "mp3":
		return carve.NewMP3Handler(e.Extension, e.MinSize, e.MaxSize), nil
	case "sqlite":
		return carve.NewSQLiteHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "zip":
		return carve.NewZIPHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "7z":
		return carve.NewSevenZipHandler(e.Extension, e.MinSize, e.MaxSize), nil
	case "rar":
		return carve.NewRARHandler(e.Extension, e.MinSize, e.MaxSize), nil
	default:
		return nil, fmt.Errorf("unknown validator %q", e.Validator)
	}
}
