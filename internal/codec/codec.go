// Package codec provides the little-endian primitives used to decode on-disk
// FAT structures: boot sectors, FAT entries, and directory entries are all
// packed little-endian byte layouts with no alignment padding.
package codec

import "encoding/binary"

// Word decodes a little-endian 16-bit value from the first two bytes of buf.
func Word(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf)
}

// DWord decodes a little-endian 32-bit value from the first four bytes of buf.
func DWord(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

// PutWord encodes v as a little-endian 16-bit value into the first two bytes
// of buf.
func PutWord(buf []byte, v uint16) {
	binary.LittleEndian.PutUint16(buf, v)
}

// PutDWord encodes v as a little-endian 32-bit value into the first four
// bytes of buf.
func PutDWord(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// BytesEqual reports whether the first n bytes of a and b are identical. It
// is a thin wrapper that exists so on-disk signature checks (MBR, GPT, BPB)
// read the same way regardless of which slice happens to be longer.
func BytesEqual(a, b []byte, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
