// Package hashing provides the fast, non-cryptographic checksum options
// used for internal integrity and dedup keys, never for the CarvedFile
// MD5/SHA-256 fields, which are fixed by the output schema.
package hashing

import (
	"hash"
	"hash/crc32"
	"hash/crc64"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-farm"
)

// Checksum computes and verifies a checksum over a byte slice.
type Checksum interface {
	Calculate(data []byte) uint64
	Verify(data []byte, expected uint64) bool
	Name() string
}

var statePool = sync.Pool{
	New: func() interface{} {
		return &state{
			crc32:  crc32.New(crc32.IEEETable),
			crc32c: crc32.New(crc32.MakeTable(crc32.Castagnoli)),
			crc64:  crc64.New(crc64.MakeTable(crc64.ISO)),
		}
	},
}

type state struct {
	crc32  hash.Hash32
	crc32c hash.Hash32
	crc64  hash.Hash64
}

// CRC32 is the IEEE CRC32 checksum.
type CRC32 struct{}

func (CRC32) Calculate(data []byte) uint64 {
	s := statePool.Get().(*state)
	defer statePool.Put(s)
	s.crc32.Reset()
	s.crc32.Write(data)
	return uint64(s.crc32.Sum32())
}
func (c CRC32) Verify(data []byte, expected uint64) bool { return c.Calculate(data) == expected }
func (CRC32) Name() string                               { return "CRC32-IEEE" }

// CRC32C is the Castagnoli CRC32 checksum, hardware-accelerated on
// platforms with SSE4.2/ARM64 CRC support.
type CRC32C struct{}

func (CRC32C) Calculate(data []byte) uint64 {
	s := statePool.Get().(*state)
	defer statePool.Put(s)
	s.crc32c.Reset()
	s.crc32c.Write(data)
	return uint64(s.crc32c.Sum32())
}
func (c CRC32C) Verify(data []byte, expected uint64) bool { return c.Calculate(data) == expected }
func (CRC32C) Name() string                               { return "CRC32C-Castagnoli" }

// CRC64 is the ISO CRC64 checksum.
type CRC64 struct{}

func (CRC64) Calculate(data []byte) uint64 {
	s := statePool.Get().(*state)
	defer statePool.Put(s)
	s.crc64.Reset()
	s.crc64.Write(data)
	return s.crc64.Sum64()
}
func (c CRC64) Verify(data []byte, expected uint64) bool { return c.Calculate(data) == expected }
func (CRC64) Name() string                               { return "CRC64-ISO" }

// XXHash3 wraps cespare/xxhash/v2 behind the Checksum interface. The
// overlap-dedup ring does not go through this type; its keys come from
// Key64.
type XXHash3 struct{}

func (XXHash3) Calculate(data []byte) uint64          { return xxhash.Sum64(data) }
func (x XXHash3) Verify(data []byte, expected uint64) bool { return x.Calculate(data) == expected }
func (XXHash3) Name() string                          { return "XXHash3" }

// Farm wraps dgryski/go-farm behind the Checksum interface, a second,
// independent hash family. Nothing outside this package's tests uses it.
type Farm struct{}

func (Farm) Calculate(data []byte) uint64          { return farm.Hash64(data) }
func (f Farm) Verify(data []byte, expected uint64) bool { return f.Calculate(data) == expected }
func (Farm) Name() string                          { return "farmhash64" }

// Key64 combines an offset and a string tag into the single uint64 the
// dedup ring stores, using XXHash3 over the tag bytes folded with the
// offset, cheaper to store and compare than keeping the tag string
// itself in every ring slot.
func Key64(offset int64, tag string) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(offset >> (8 * i))
	}
	h.Write(buf[:])
	h.Write([]byte(tag))
	return h.Sum64()
}
