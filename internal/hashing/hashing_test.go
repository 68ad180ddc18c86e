package hashing

import "testing"

func TestChecksumImplementations(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	checks := []Checksum{CRC32{}, CRC32C{}, CRC64{}, XXHash3{}, Farm{}}
	for _, c := range checks {
		t.Run(c.Name(), func(t *testing.T) {
			sum := c.Calculate(data)
			if !c.Verify(data, sum) {
				t.Errorf("%s: Verify failed for its own Calculate output", c.Name())
			}
			tampered := append([]byte{}, data...)
			tampered[0] ^= 0xFF
			if c.Verify(tampered, sum) {
				t.Errorf("%s: Verify should reject tampered data", c.Name())
			}
		})
	}
}

func TestChecksumConsistentAcrossCalls(t *testing.T) {
	data := []byte("consistency check")
	checks := []Checksum{CRC32{}, CRC32C{}, CRC64{}, XXHash3{}, Farm{}}
	for _, c := range checks {
		a := c.Calculate(data)
		b := c.Calculate(data)
		if a != b {
			t.Errorf("%s: Calculate not consistent across calls: %d vs %d", c.Name(), a, b)
		}
	}
}

func TestKey64DistinguishesOffsetAndTag(t *testing.T) {
	a := Key64(100, "png")
	b := Key64(200, "png")
	c := Key64(100, "jpeg")

	if a == b {
		t.Error("expected different offsets to produce different keys")
	}
	if a == c {
		t.Error("expected different tags to produce different keys")
	}
}

func TestKey64Deterministic(t *testing.T) {
	a := Key64(4096, "bmp")
	b := Key64(4096, "bmp")
	if a != b {
		t.Error("expected Key64 to be deterministic for identical inputs")
	}
}

func TestChecksumEmptyData(t *testing.T) {
	checks := []Checksum{CRC32{}, CRC32C{}, CRC64{}, XXHash3{}, Farm{}}
	for _, c := range checks {
		sum := c.Calculate(nil)
		if !c.Verify(nil, sum) {
			t.Errorf("%s: failed to verify empty data", c.Name())
		}
	}
}

func TestCRC32PoolingConcurrentSafe(t *testing.T) {
	a := []byte("first payload")
	b := []byte("second payload, longer than the first")

	var crc CRC32
	done := make(chan uint64, 2)
	go func() { done <- crc.Calculate(a) }()
	go func() { done <- crc.Calculate(b) }()
	s1, s2 := <-done, <-done

	if s1 == s2 {
		t.Error("expected distinct payloads to produce distinct checksums even when computed concurrently")
	}
}
