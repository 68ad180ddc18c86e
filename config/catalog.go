package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tailscale/hujson"

	"github.com/caseforge/filecarver/internal/logger"
	"github.com/caseforge/filecarver/registry"
	"github.com/caseforge/filecarver/scanner"
)

// PatternDoc is one header pattern entry within a FileTypeDoc.
type PatternDoc struct {
	PatternID int    `json:"pattern_id"`
	Hex       string `json:"hex"`
}

// FileTypeDoc is one entry in the JWCC signature catalog: a single
// configured file type, its patterns, and its size bounds.
type FileTypeDoc struct {
	ID        string       `json:"id"`
	Extension string       `json:"extension"`
	Patterns  []PatternDoc `json:"patterns"`
	Footer    string       `json:"footer,omitempty"`
	MinSize   int64        `json:"min_size"`
	MaxSize   int64        `json:"max_size"`
	Validator string       `json:"validator"`
	Enabled   *bool        `json:"enabled,omitempty"` // nil means true
}

// CatalogDoc is the top-level JWCC (JSON-with-comments) document.
type CatalogDoc struct {
	FileTypes []FileTypeDoc `json:"file_types"`
}

// Patterns returns every (file_type_id, pattern_id, bytes) triple across
// enabled file types, in catalog order, for the scanner to compile.
func (d CatalogDoc) Patterns() ([]scanner.Pattern, error) {
	var out []scanner.Pattern
	for _, ft := range d.FileTypes {
		if ft.Enabled != nil && !*ft.Enabled {
			continue
		}
		for _, p := range ft.Patterns {
			b, err := hex.DecodeString(p.Hex)
			if err != nil {
				return nil, fmt.Errorf("config: file type %q pattern %d: invalid hex: %w", ft.ID, p.PatternID, err)
			}
			out = append(out, scanner.Pattern{FileTypeID: ft.ID, PatternID: p.PatternID, Bytes: b})
		}
	}
	return out, nil
}

// RegistryEntries returns every enabled file type as a registry.Entry.
func (d CatalogDoc) RegistryEntries() []registry.Entry {
	var out []registry.Entry
	for _, ft := range d.FileTypes {
		if ft.Enabled != nil && !*ft.Enabled {
			continue
		}
		out = append(out, registry.Entry{
			FileTypeID: ft.ID,
			Validator:  ft.Validator,
			Extension:  ft.Extension,
			MinSize:    ft.MinSize,
			MaxSize:    ft.MaxSize,
		})
	}
	return out
}

// LoadCatalog reads a JWCC signature catalog from path, tolerating `//`
// and `/* */` comments and trailing commas via hujson.Standardize before
// strict JSON decoding.
func LoadCatalog(path string) (*CatalogDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read catalog %s: %w", path, err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*CatalogDoc, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("config: invalid JWCC catalog: %w", err)
	}
	var doc CatalogDoc
	if err := json.Unmarshal(standardized, &doc); err != nil {
		return nil, fmt.Errorf("config: parse catalog: %w", err)
	}
	return &doc, nil
}

// CatalogWatcher hot-reloads a signature catalog file, publishing a fresh
// CatalogDoc to Updates() whenever the file changes on disk. The scan
// pipeline does not subscribe to Updates(): a running scan keeps the
// catalog and registry it was built with.
type CatalogWatcher struct {
	mu      sync.RWMutex
	current *CatalogDoc
	watcher *fsnotify.Watcher
	updates chan *CatalogDoc
	done    chan struct{}
}

// WatchCatalog starts watching path for changes, seeding Current() with
// the catalog already on disk.
func WatchCatalog(path string) (*CatalogWatcher, error) {
	doc, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create catalog watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	cw := &CatalogWatcher{
		current: doc,
		watcher: w,
		updates: make(chan *CatalogDoc, 1),
		done:    make(chan struct{}),
	}
	go cw.run(path)
	return cw, nil
}

func (cw *CatalogWatcher) run(path string) {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			doc, err := LoadCatalog(path)
			if err != nil {
				logger.Log.Warn("config: catalog reload failed: {error}", err)
				continue
			}
			cw.mu.Lock()
			cw.current = doc
			cw.mu.Unlock()
			logger.Log.Info("config: signature catalog reloaded from {path}", path)
			// Drop an unconsumed earlier reload so the channel holds the
			// newest one; this goroutine is the only sender.
			select {
			case <-cw.updates:
			default:
			}
			cw.updates <- doc
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Warn("config: catalog watcher error: {error}", err)
		}
	}
}

// Current returns the most recently loaded catalog.
func (cw *CatalogWatcher) Current() *CatalogDoc {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.current
}

// Updates returns a channel receiving a new CatalogDoc each time the file
// changes. Buffered by 1; a reload that arrives before the previous one is
// consumed overwrites it rather than blocking the watcher goroutine.
func (cw *CatalogWatcher) Updates() <-chan *CatalogDoc { return cw.updates }

// Close stops the watcher.
func (cw *CatalogWatcher) Close() error {
	err := cw.watcher.Close()
	<-cw.done
	return err
}
