package testutil

import (
	"encoding/binary"
	"os"
)

// MinimalBMP returns the bytes of a 1x1 24-bit BMP: a 14-byte file header
// plus a 40-byte BITMAPINFOHEADER plus 4 bytes of pixel data (padded to a
// 4-byte row), 58 bytes total.
func MinimalBMP() []byte {
	buf := make([]byte, 58)
	buf[0], buf[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(buf[2:6], 58) // file size
	binary.LittleEndian.PutUint32(buf[10:14], 54) // pixel offset
	binary.LittleEndian.PutUint32(buf[14:18], 40) // DIB header size
	binary.LittleEndian.PutUint32(buf[18:22], 1)  // width
	binary.LittleEndian.PutUint32(buf[22:26], 1)  // height
	binary.LittleEndian.PutUint16(buf[26:28], 1)  // planes
	binary.LittleEndian.PutUint16(buf[28:30], 24) // bits per pixel
	return buf
}

// RejectedBMP returns a BMP header whose DIB header size (99) is not a
// recognized value, which must be rejected before any bytes stream out.
func RejectedBMP() []byte {
	buf := make([]byte, 64)
	buf[0], buf[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(buf[2:6], 100)  // file size
	binary.LittleEndian.PutUint32(buf[10:14], 54) // pixel offset
	binary.LittleEndian.PutUint32(buf[14:18], 99) // invalid DIB size
	return buf
}

// MinimalWAV returns a RIFF/WAVE header declaring a 0x64 (100) byte chunk
// body, followed by 100 bytes of payload: 108 bytes total.
func MinimalWAV() []byte {
	buf := make([]byte, 108)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 100)
	copy(buf[8:12], "WAVE")
	return buf
}

// MinimalPNG returns a well-formed, minimal PNG: signature, IHDR, and
// IEND chunks only, no pixel data.
func MinimalPNG() []byte {
	var buf []byte
	buf = append(buf, 0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A)

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 1) // width
	binary.BigEndian.PutUint32(ihdr[4:8], 1) // height
	ihdr[8] = 8  // bit depth
	ihdr[9] = 2  // color type: truecolor
	buf = append(buf, pngChunk("IHDR", ihdr)...)
	buf = append(buf, pngIENDChunk()...)
	return buf
}

func pngChunk(kind string, data []byte) []byte {
	out := make([]byte, 0, 12+len(data))
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	out = append(out, length...)
	out = append(out, []byte(kind)...)
	out = append(out, data...)
	out = append(out, 0, 0, 0, 0) // CRC placeholder; carve handlers here don't verify it
	return out
}

// pngIENDChunk returns the fixed, 12-byte zero-data IEND chunk, CRC bytes
// included: the PNG footer handler searches for this exact trailing byte
// sequence (length+"IEND"+CRC), so unlike pngChunk's other placeholder CRCs,
// this one must be the real, always-constant IEND CRC.
func pngIENDChunk() []byte {
	return []byte{0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82}
}

// MinimalJPEG returns a tiny JPEG: SOI marker, one marker segment, EOI.
func MinimalJPEG() []byte {
	buf := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	buf = append(buf, []byte("JFIF\x00")...)
	buf = append(buf, make([]byte, 6)...)
	buf = append(buf, 0xFF, 0xD9)
	return buf
}

// MinimalOLE returns a 512-byte OLE/CFB v3 header: signature, little-endian
// byte-order mark, sector power 9 (512-byte sectors), and DIFAT[0]=1.
func MinimalOLE() []byte {
	buf := make([]byte, 512)
	copy(buf[0:8], []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(buf[26:28], 3)      // major version
	binary.LittleEndian.PutUint16(buf[28:30], 0xFFFE) // byte order
	binary.LittleEndian.PutUint16(buf[30:32], 9)       // sector shift
	binary.LittleEndian.PutUint32(buf[76:80], 1)       // DIFAT[0]
	return buf
}

// WriteSyntheticImage writes a synthetic evidence file of at least size
// bytes: a handful of recognizable fixtures back to back, padded to size
// with zeros. Used by smoke tests and the profiling harness, not as a
// golden-scenario fixture; golden scenarios build their own precise byte
// layouts inline.
func WriteSyntheticImage(path string, size int64) error {
	var buf []byte
	buf = append(buf, MinimalBMP()...)
	buf = append(buf, MinimalWAV()...)
	buf = append(buf, MinimalPNG()...)
	buf = append(buf, MinimalJPEG()...)
	buf = append(buf, MinimalOLE()...)
	if int64(len(buf)) < size {
		buf = append(buf, make([]byte, size-int64(len(buf)))...)
	}
	return os.WriteFile(path, buf, 0o644)
}
