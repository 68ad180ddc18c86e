package config

import "testing"

func TestDefaultCatalogBuildsValidRegistryEntries(t *testing.T) {
	doc := DefaultCatalog()
	if len(doc.FileTypes) == 0 {
		t.Fatal("expected the default catalog to be non-empty")
	}

	entries := doc.RegistryEntries()
	if len(entries) != len(doc.FileTypes) {
		t.Fatalf("expected every default file type enabled, got %d of %d", len(entries), len(doc.FileTypes))
	}

	for _, e := range entries {
		if e.Validator == "" {
			t.Errorf("file type %q has no validator", e.FileTypeID)
		}
		if e.MinSize <= 0 {
			t.Errorf("file type %q has a non-positive min size %d", e.FileTypeID, e.MinSize)
		}
		if e.MaxSize < e.MinSize {
			t.Errorf("file type %q has max size %d smaller than min size %d", e.FileTypeID, e.MaxSize, e.MinSize)
		}
	}
}

func TestDefaultCatalogPatternsAllDecodeAsHex(t *testing.T) {
	patterns, err := DefaultCatalog().Patterns()
	if err != nil {
		t.Fatalf("Patterns failed: %v", err)
	}
	if len(patterns) == 0 {
		t.Fatal("expected at least one compiled pattern")
	}
	for _, p := range patterns {
		if len(p.Bytes) == 0 {
			t.Errorf("file type %q pattern %d decoded to zero bytes", p.FileTypeID, p.PatternID)
		}
	}
}

func TestDefaultCatalogFileTypeIDsAreUnique(t *testing.T) {
	doc := DefaultCatalog()
	seen := make(map[string]bool, len(doc.FileTypes))
	for _, ft := range doc.FileTypes {
		if seen[ft.ID] {
			t.Errorf("duplicate file type id %q", ft.ID)
		}
		seen[ft.ID] = true
	}
}
