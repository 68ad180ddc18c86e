package custody

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// Signer produces and verifies Ed25519 signatures over a custody chain
// digest. Carving never requires signing; a nil Signer means the run's
// manifest goes unsigned.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

// NewSigner generates a fresh Ed25519 keypair.
func NewSigner() (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("custody: generate ed25519 key: %w", err)
	}
	return &Signer{privateKey: priv, publicKey: pub}, nil
}

// LoadSigner reads an Ed25519 private key from a PKCS8 PEM file.
func LoadSigner(privateKeyPath string) (*Signer, error) {
	keyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("custody: read private key: %w", err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("custody: no PEM block found in %s", privateKeyPath)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("custody: parse private key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("custody: %s is not an Ed25519 private key", privateKeyPath)
	}
	return &Signer{privateKey: priv, publicKey: priv.Public().(ed25519.PublicKey)}, nil
}

// Sign returns an Ed25519 signature over digest.
func (s *Signer) Sign(digest []byte) []byte {
	return ed25519.Sign(s.privateKey, digest)
}

// Verify reports whether signature is valid for digest under this
// signer's public key.
func (s *Signer) Verify(digest, signature []byte) bool {
	return ed25519.Verify(s.publicKey, digest, signature)
}

// PublicKey returns the raw public key bytes, for embedding alongside a
// manifest so a third party can verify it without the private key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.publicKey
}
