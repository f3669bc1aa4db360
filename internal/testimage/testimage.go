// Package testimage builds synthetic FAT16/FAT32 disk images for tests.
// It's grounded on the teacher's testing/images.go (which turns a
// compressed fixture into a bytesextra.ReadWriteSeeker) and
// testing/blockcache.go, but builds fixtures directly in Go instead of
// shipping compressed binary blobs, since every image here is small and
// synthetic. Structured fields use internal/codec (little-endian
// encoding/binary) for random-access writes and
// github.com/noxer/bytewriter for the BPB, whose fields are naturally
// sequential, following the pattern the teacher's compression tests use
// for building fixed-size buffers field by field.
package testimage

import (
	"encoding/binary"
	"time"

	"github.com/noxer/bytewriter"
	"github.com/xaionaro-go/bytesextra"

	"github.com/mbitsnbites/mfat/internal/blockio"
	"github.com/mbitsnbites/mfat/internal/codec"
)

// Image is an in-memory disk image under construction.
type Image struct {
	data []byte
}

// New creates a blank, zero-filled image of numBlocks blocks.
func New(numBlocks int) *Image {
	return &Image{data: make([]byte, numBlocks*blockio.BlockSize)}
}

func (img *Image) blockBytes(blockNo blockio.LogicalBlock) []byte {
	start := int(blockNo) * blockio.BlockSize
	return img.data[start : start+blockio.BlockSize]
}

// Callbacks returns the ReadBlockFunc/WriteBlockFunc pair mfat.Mount wants,
// backed by this image's bytes via an xaionaro-go/bytesextra.ReadWriteSeeker
// (spec.md §6's two block callbacks).
func (img *Image) Callbacks() (blockio.ReadBlockFunc, blockio.WriteBlockFunc) {
	rw := bytesextra.NewReadWriteSeeker(img.data)

	read := func(blockNo blockio.LogicalBlock, buf []byte) error {
		if _, err := rw.Seek(int64(blockNo)*blockio.BlockSize, 0); err != nil {
			return err
		}
		_, err := rw.Read(buf)
		return err
	}
	write := func(blockNo blockio.LogicalBlock, buf []byte) error {
		if _, err := rw.Seek(int64(blockNo)*blockio.BlockSize, 0); err != nil {
			return err
		}
		_, err := rw.Write(buf)
		return err
	}
	return read, write
}

// MBREntry is one of the four partition table entries a PutMBR call writes.
type MBREntry struct {
	Boot       bool
	Type       byte
	FirstBlock uint32
}

// PutMBR writes a valid 0x55AA-signed MBR into block 0 with up to 4
// entries (spec.md §4.4 step 2).
func (img *Image) PutMBR(entries []MBREntry) {
	block := img.blockBytes(0)
	for i := 0; i < len(entries) && i < 4; i++ {
		e := entries[i]
		off := 446 + 16*i
		if e.Boot {
			block[off] = 0x80
		}
		block[off+4] = e.Type
		codec.PutDWord(block[off+8:off+12], e.FirstBlock)
	}
	block[510] = 0x55
	block[511] = 0xAA
}

// GPTEntry is one GPT partition entry PutGPT writes.
type GPTEntry struct {
	TypeGUID   [16]byte
	Boot       bool
	FirstBlock uint32
}

// WindowsBasicDataGUID is the Windows Basic Data partition type GUID in its
// mixed-endian on-disk byte order (spec.md §4.4).
var WindowsBasicDataGUID = [16]byte{
	0xa2, 0xa0, 0xd0, 0xeb, 0xe5, 0xb9, 0x33, 0x44,
	0x87, 0xc0, 0x68, 0xb6, 0xb7, 0x26, 0x99, 0xc7,
}

// PutGPT writes a minimal GPT header into block 1 and the given entries
// starting at block 2, using 128-byte entries (spec.md §4.4 step 1).
func (img *Image) PutGPT(entries []GPTEntry) {
	const entrySize = 128
	const entriesBlock = 2

	header := img.blockBytes(1)
	copy(header[0:8], "EFI PART")
	codec.PutDWord(header[72:76], entriesBlock)
	codec.PutDWord(header[80:84], uint32(len(entries)))
	codec.PutDWord(header[84:88], entrySize)

	for i, e := range entries {
		entryOffset := i * entrySize
		blockNo := blockio.LogicalBlock(entriesBlock + entryOffset/blockio.BlockSize)
		offInBlock := entryOffset % blockio.BlockSize

		block := img.blockBytes(blockNo)
		entry := block[offInBlock : offInBlock+entrySize]
		copy(entry[0:16], e.TypeGUID[:])
		codec.PutDWord(entry[32:36], e.FirstBlock)
		if e.Boot {
			entry[48] = 0x04
		}
	}
}

// BPBParams configures PutBPB.
type BPBParams struct {
	PartitionStart    blockio.LogicalBlock
	BlocksPerCluster  byte
	NumReservedBlocks uint16
	NumFATs           byte
	NumRootEntries    uint16 // 0 for FAT32
	NumBlocks         uint32
	BlocksPerFAT      uint32
	RootDirCluster    uint32 // FAT32 only
}

// PutBPB writes a valid BIOS Parameter Block at p.PartitionStart, using
// bytewriter to lay out the fields in their natural on-disk sequence
// (spec.md §4.5), choosing the FAT16 or FAT32 shape based on whether
// NumRootEntries is nonzero.
func (img *Image) PutBPB(p BPBParams) {
	block := img.blockBytes(p.PartitionStart)
	w := bytewriter.New(block)

	w.Write([]byte{0xEB, 0x00, 0x90}) // jmp/nop
	w.Write(make([]byte, 8))          // OEM name
	binary.Write(w, binary.LittleEndian, uint16(blockio.BlockSize))
	w.Write([]byte{p.BlocksPerCluster})
	binary.Write(w, binary.LittleEndian, p.NumReservedBlocks)
	w.Write([]byte{p.NumFATs})
	binary.Write(w, binary.LittleEndian, p.NumRootEntries)

	var totalBlocks16 uint16
	if p.NumBlocks <= 0xFFFF {
		totalBlocks16 = uint16(p.NumBlocks)
	}
	binary.Write(w, binary.LittleEndian, totalBlocks16)
	w.Write([]byte{0xF8}) // media descriptor: fixed disk

	var fatSize16 uint16
	if p.BlocksPerFAT <= 0xFFFF && p.NumRootEntries != 0 {
		fatSize16 = uint16(p.BlocksPerFAT)
	}
	binary.Write(w, binary.LittleEndian, fatSize16)
	binary.Write(w, binary.LittleEndian, uint16(0)) // sectors per track
	binary.Write(w, binary.LittleEndian, uint16(0)) // number of heads
	binary.Write(w, binary.LittleEndian, uint32(0)) // hidden sectors

	var totalBlocks32 uint32
	if totalBlocks16 == 0 {
		totalBlocks32 = p.NumBlocks
	}
	binary.Write(w, binary.LittleEndian, totalBlocks32)

	if p.NumRootEntries == 0 {
		// FAT32 extension fields, offsets 36-47; the rest of the reserved
		// block was already zeroed by New and needs no explicit write.
		binary.Write(w, binary.LittleEndian, p.BlocksPerFAT)
		binary.Write(w, binary.LittleEndian, uint16(0)) // ext flags
		binary.Write(w, binary.LittleEndian, uint16(0)) // fs version
		binary.Write(w, binary.LittleEndian, p.RootDirCluster)
	}

	block[510] = 0x55
	block[511] = 0xAA
}

// DirEntry is one 32-byte directory entry PutDirEntry writes.
type DirEntry struct {
	Name         [11]byte
	Attr         byte
	FirstCluster uint32
	Size         uint32
	ModTime      time.Time
}

// PutDirEntry writes one 32-byte directory entry at byte offset off within
// block blockNo (spec.md §4.8/§4.9 field offsets).
func (img *Image) PutDirEntry(blockNo blockio.LogicalBlock, off int, e DirEntry) {
	block := img.blockBytes(blockNo)
	entry := block[off : off+32]

	copy(entry[0:11], e.Name[:])
	entry[11] = e.Attr

	wt, wd := encodeFATTime(e.ModTime)
	codec.PutWord(entry[16:18], wt) // create time, reuse write time
	codec.PutWord(entry[18:20], wd) // create date
	codec.PutWord(entry[20:22], uint16(e.FirstCluster>>16))
	codec.PutWord(entry[22:24], wt)
	codec.PutWord(entry[24:26], wd)
	codec.PutWord(entry[26:28], uint16(e.FirstCluster))
	codec.PutDWord(entry[28:32], e.Size)
}

// PutEndOfDirectory writes a 0x00 end-of-directory marker at byte offset
// off within blockNo (spec.md §4.8 "First byte 0x00 => end of directory").
func (img *Image) PutEndOfDirectory(blockNo blockio.LogicalBlock, off int) {
	block := img.blockBytes(blockNo)
	block[off] = 0x00
}

func encodeFATTime(t time.Time) (uint16, uint16) {
	if t.IsZero() {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	wt := uint16(t.Hour()<<11) | uint16(t.Minute()<<5) | uint16(t.Second()/2)
	wd := uint16(t.Year()-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	return wt, wd
}

// PutFAT16Entry writes the FAT16 entry for cluster in the FAT starting at
// fatStartBlock (spec.md §4.6 field layout).
func (img *Image) PutFAT16Entry(fatStartBlock blockio.LogicalBlock, cluster uint32, value uint16) {
	byteOffset := 2 * cluster
	blockNo := fatStartBlock + blockio.LogicalBlock(byteOffset/blockio.BlockSize)
	block := img.blockBytes(blockNo)
	codec.PutWord(block[byteOffset%blockio.BlockSize:], value)
}

// PutFAT32Entry writes the FAT32 entry for cluster in the FAT starting at
// fatStartBlock. value is stored as given, including its top 4 reserved bits.
func (img *Image) PutFAT32Entry(fatStartBlock blockio.LogicalBlock, cluster uint32, value uint32) {
	byteOffset := 4 * cluster
	blockNo := fatStartBlock + blockio.LogicalBlock(byteOffset/blockio.BlockSize)
	block := img.blockBytes(blockNo)
	codec.PutDWord(block[byteOffset%blockio.BlockSize:], value)
}

// PutData writes data starting at byte offset 0 of blockNo, for building
// file content fixtures.
func (img *Image) PutData(blockNo blockio.LogicalBlock, data []byte) {
	block := img.blockBytes(blockNo)
	copy(block, data)
}
