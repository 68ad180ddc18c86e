// Package custody maintains a tamper-evident chain of custody over a run's
// carved-file records. Each record's digest folds in the previous record's
// digest, and the final chain digest can be Ed25519-signed into a manifest
// file sitting alongside the run's metadata output.
package custody

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/caseforge/filecarver/metadata"
)

// Engine hashes the ordered sequence of CarvedFile records a run emits. A
// nil *Engine is valid and a no-op everywhere it is used; custody is
// additive, never required to carve a file.
type Engine struct {
	mu       sync.Mutex
	prevHash [32]byte
	count    int
	signer   *Signer
}

// New builds an Engine. signer may be nil, in which case Finalize still
// produces a chain digest but Manifest.Signature stays empty.
func New(signer *Signer) *Engine {
	return &Engine{signer: signer}
}

// Record folds one CarvedFile into the chain: digest = SHA256(prevHash ||
// canonical JSON of the record). Safe for concurrent callers; the
// metadata funnel is single-threaded in practice, but this does not
// assume it.
func (e *Engine) Record(rec metadata.CarvedFile) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("custody: marshal record: %w", err)
	}
	h := sha256.New()
	h.Write(e.prevHash[:])
	h.Write(data)
	var next [32]byte
	copy(next[:], h.Sum(nil))
	e.prevHash = next
	e.count++
	return nil
}

// Count returns the number of records folded into the chain so far.
func (e *Engine) Count() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Digest returns the current chain digest, hex-encoded.
func (e *Engine) Digest() string {
	if e == nil {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return hex.EncodeToString(e.prevHash[:])
}

// Manifest is the serialized custody record written alongside a run's
// metadata output.
type Manifest struct {
	RunID     string `json:"run_id"`
	Digest    string `json:"digest"`
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"public_key,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// WriteManifest writes <outputDir>/<runID>.manifest.sig containing the
// chain digest and, if a signer was configured, its Ed25519 signature.
func (e *Engine) WriteManifest(outputDir, runID string) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	digest := e.prevHash
	e.mu.Unlock()

	m := Manifest{RunID: runID, Digest: hex.EncodeToString(digest[:]), Algorithm: "sha256-chain"}
	if e.signer != nil {
		sig := e.signer.Sign(digest[:])
		m.Signature = hex.EncodeToString(sig)
		m.PublicKey = hex.EncodeToString(e.signer.PublicKey())
		m.Algorithm = "sha256-chain+ed25519"
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("custody: marshal manifest: %w", err)
	}
	path := fmt.Sprintf("%s/%s.manifest.sig", outputDir, runID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("custody: write manifest: %w", err)
	}
	return nil
}

// VerifyManifest re-derives nothing on its own; it checks a previously
// written Manifest's signature against a supplied public key, used by
// `filecarver verify` to confirm a manifest has not been altered since
// signing.
func VerifyManifest(m Manifest, publicKeyHex string) (bool, error) {
	if m.Signature == "" {
		return false, fmt.Errorf("custody: manifest has no signature")
	}
	digest, err := hex.DecodeString(m.Digest)
	if err != nil {
		return false, fmt.Errorf("custody: decode digest: %w", err)
	}
	sig, err := hex.DecodeString(m.Signature)
	if err != nil {
		return false, fmt.Errorf("custody: decode signature: %w", err)
	}
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false, fmt.Errorf("custody: decode public key: %w", err)
	}
	s := &Signer{publicKey: pub}
	return s.Verify(digest, sig), nil
}
