package custody

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/caseforge/filecarver/metadata"
)

func mustDecodeDigest(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("failed to decode digest %q: %v", s, err)
	}
	return b
}

func hexEncode(b []byte) string { return hex.EncodeToString(b) }

func TestNilEngineIsANoOp(t *testing.T) {
	var e *Engine
	if err := e.Record(metadata.CarvedFile{FileType: "bmp"}); err != nil {
		t.Fatalf("nil engine Record should be a no-op, got error: %v", err)
	}
	if e.Count() != 0 {
		t.Errorf("nil engine Count should be 0, got %d", e.Count())
	}
	if e.Digest() != "" {
		t.Errorf("nil engine Digest should be empty, got %q", e.Digest())
	}
	if err := e.WriteManifest(t.TempDir(), "run1"); err != nil {
		t.Errorf("nil engine WriteManifest should be a no-op, got error: %v", err)
	}
}

func TestRecordAdvancesChainAndCount(t *testing.T) {
	e := New(nil)

	if e.Count() != 0 {
		t.Fatalf("expected count 0 before any record, got %d", e.Count())
	}
	emptyDigest := e.Digest()

	if err := e.Record(metadata.CarvedFile{FileType: "bmp", GlobalOffset: 0}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if e.Count() != 1 {
		t.Errorf("expected count 1 after one record, got %d", e.Count())
	}
	firstDigest := e.Digest()
	if firstDigest == emptyDigest {
		t.Error("expected digest to change after folding in a record")
	}

	if err := e.Record(metadata.CarvedFile{FileType: "png", GlobalOffset: 100}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if e.Count() != 2 {
		t.Errorf("expected count 2 after two records, got %d", e.Count())
	}
	if e.Digest() == firstDigest {
		t.Error("expected digest to change again after a second record")
	}
}

func TestChainDigestIsOrderDependent(t *testing.T) {
	a := New(nil)
	_ = a.Record(metadata.CarvedFile{FileType: "bmp", GlobalOffset: 0})
	_ = a.Record(metadata.CarvedFile{FileType: "png", GlobalOffset: 100})

	b := New(nil)
	_ = b.Record(metadata.CarvedFile{FileType: "png", GlobalOffset: 100})
	_ = b.Record(metadata.CarvedFile{FileType: "bmp", GlobalOffset: 0})

	if a.Digest() == b.Digest() {
		t.Error("expected chain digest to depend on record order")
	}
}

func TestWriteManifestUnsigned(t *testing.T) {
	e := New(nil)
	_ = e.Record(metadata.CarvedFile{FileType: "bmp", GlobalOffset: 0})

	dir := t.TempDir()
	if err := e.WriteManifest(dir, "run42"); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "run42.manifest.sig"))
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty manifest file")
	}
}

func TestSignAndVerifyManifest(t *testing.T) {
	signer, err := NewSigner()
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	e := New(signer)
	_ = e.Record(metadata.CarvedFile{FileType: "ole", GlobalOffset: 0})

	dir := t.TempDir()
	if err := e.WriteManifest(dir, "run7"); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	m := Manifest{
		RunID:     "run7",
		Digest:    e.Digest(),
		Algorithm: "sha256-chain+ed25519",
	}
	sig := signer.Sign(mustDecodeDigest(t, e.Digest()))
	m.Signature = hexEncode(sig)
	m.PublicKey = hexEncode(signer.PublicKey())

	ok, err := VerifyManifest(m, m.PublicKey)
	if err != nil {
		t.Fatalf("VerifyManifest failed: %v", err)
	}
	if !ok {
		t.Error("expected manifest signature to verify")
	}
}

func TestVerifyManifestRejectsTamperedDigest(t *testing.T) {
	signer, err := NewSigner()
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	digest := []byte("0123456789abcdef0123456789abcdef")[:32]
	sig := signer.Sign(digest)

	m := Manifest{
		Digest:    hexEncode(digest),
		Signature: hexEncode(sig),
	}
	// Flip the digest after signing: the signature no longer matches.
	tampered := append([]byte{}, digest...)
	tampered[0] ^= 0xFF
	m.Digest = hexEncode(tampered)

	ok, err := VerifyManifest(m, hexEncode(signer.PublicKey()))
	if err != nil {
		t.Fatalf("VerifyManifest returned an unexpected error: %v", err)
	}
	if ok {
		t.Error("expected tampered digest to fail verification")
	}
}

func TestVerifyManifestRejectsMissingSignature(t *testing.T) {
	_, err := VerifyManifest(Manifest{Digest: "aa"}, "bb")
	if err == nil {
		t.Error("expected an error for a manifest with no signature")
	}
}
