package partition

import (
	"github.com/mbitsnbites/mfat/errors"
	"github.com/mbitsnbites/mfat/internal/blockio"
	"github.com/mbitsnbites/mfat/internal/codec"
)

// MaxPartitions is the default size of the partition table, matching the
// original library's MFAT_NUM_PARTITIONS. MountOptions can override it.
const MaxPartitions = 4

// windowsBasicDataGUID is the 16-byte GPT partition type GUID
// A2A0D0EB-B9E5-4433-87C0-68B6B72699C7 in its mixed-endian on-disk byte
// order (spec.md §4.4).
var windowsBasicDataGUID = [16]byte{
	0xa2, 0xa0, 0xd0, 0xeb, 0xe5, 0xb9, 0x33, 0x44,
	0x87, 0xc0, 0x68, 0xb6, 0xb7, 0x26, 0x99, 0xc7,
}

// mbrPartitionTypes are the MBR partition-type bytes this library recognizes
// as "probably FAT", mirroring original_source/mfat.c's MFAT_PART_ID_* set.
var mbrPartitionTypes = map[byte]bool{
	0x04: true, // FAT16, <32MB
	0x06: true, // FAT16, >32MB
	0x0B: true, // FAT32
	0x0C: true, // FAT32, LBA
	0x0E: true, // FAT16, >32MB, LBA
}

// Discover populates up to max partition records by trying GPT, then MBR,
// then falling back to a table-less single-volume layout (spec.md §4.4).
// Every Undecided entry still needs its BPB decoded by the caller via Decode.
func Discover(dev *blockio.Device, max int) ([]Partition, errors.DriverError) {
	if max < 1 {
		max = 1
	}

	parts, err := discoverGPT(dev, max)
	if err != nil {
		return nil, err
	}
	if parts != nil {
		return parts, nil
	}

	parts, err = discoverMBR(dev, max)
	if err != nil {
		return nil, err
	}
	if parts != nil {
		return parts, nil
	}

	return discoverTableless(max), nil
}

func discoverGPT(dev *blockio.Device, max int) ([]Partition, errors.DriverError) {
	var header [blockio.BlockSize]byte
	if err := dev.ReadBlock(1, header[:]); err != nil {
		return nil, err
	}
	if !codec.BytesEqual(header[:8], []byte("EFI PART"), 8) {
		return nil, nil
	}

	entriesBlock := blockio.LogicalBlock(codec.DWord(header[72:76]))
	numEntries := codec.DWord(header[80:84])
	entrySize := codec.DWord(header[84:88])
	if entrySize < 56 || entrySize > blockio.BlockSize {
		return nil, nil
	}

	n := int(numEntries)
	if n > max {
		n = max
	}

	parts := make([]Partition, max)
	var block [blockio.BlockSize]byte
	curBlock := blockio.LogicalBlock(0)
	loaded := false
	found := 0

	for i := 0; i < n; i++ {
		entryOffset := uint32(i) * entrySize
		blockNo := entriesBlock + blockio.LogicalBlock(entryOffset/blockio.BlockSize)
		offInBlock := entryOffset % blockio.BlockSize
		if offInBlock+entrySize > blockio.BlockSize {
			// An entry straddling a block boundary can't happen with the
			// GPT spec's standard 128-byte entries; treat it as corrupt.
			continue
		}

		if !loaded || blockNo != curBlock {
			if err := dev.ReadBlock(blockNo, block[:]); err != nil {
				return nil, err
			}
			curBlock = blockNo
			loaded = true
		}

		entry := block[offInBlock : offInBlock+entrySize]
		if codec.BytesEqual(entry[:16], windowsBasicDataGUID[:], 16) {
			parts[found] = Partition{
				Kind:       Undecided,
				FirstBlock: blockio.LogicalBlock(codec.DWord(entry[32:36])),
				Boot:       entry[48]&0x04 != 0,
			}
			found++
			if found >= max {
				break
			}
		}
	}

	if found == 0 {
		return nil, nil
	}
	return parts, nil
}

// DiscoverWithoutGPT runs the MBR and table-less fallback steps only,
// skipping the GPT probe (MountOptions.DisableGPT, SPEC_FULL.md §7's
// MFAT_ENABLE_GPT-style opt-out).
func DiscoverWithoutGPT(dev *blockio.Device, max int) ([]Partition, errors.DriverError) {
	if max < 1 {
		max = 1
	}
	parts, err := discoverMBR(dev, max)
	if err != nil {
		return nil, err
	}
	if parts != nil {
		return parts, nil
	}
	return discoverTableless(max), nil
}

func discoverMBR(dev *blockio.Device, max int) ([]Partition, errors.DriverError) {
	var block [blockio.BlockSize]byte
	if err := dev.ReadBlock(0, block[:]); err != nil {
		return nil, err
	}
	if block[510] != 0x55 || block[511] != 0xAA {
		return nil, nil
	}

	parts := make([]Partition, max)
	found := 0
	for i := 0; i < 4 && found < max; i++ {
		entry := block[446+16*i : 446+16*i+16]
		if !mbrPartitionTypes[entry[4]] {
			continue
		}
		parts[found] = Partition{
			Kind:       Undecided,
			FirstBlock: blockio.LogicalBlock(codec.DWord(entry[8:12])),
			Boot:       entry[0]&0x80 != 0,
		}
		found++
	}

	if found == 0 {
		return nil, nil
	}
	return parts, nil
}

func discoverTableless(max int) []Partition {
	parts := make([]Partition, max)
	parts[0] = Partition{Kind: Undecided, FirstBlock: 0}
	return parts
}
