// Package partition decodes partition tables (GPT, MBR, table-less) and BIOS
// Parameter Blocks, producing the geometry every higher layer needs (spec.md
// §4.4-4.5, components C4-C5). It's grounded on the teacher repo's
// drivers/fat/common.go boot-sector decoder for the BPB half, and on
// original_source/mfat.c's _mfat_decode_mbr/_mfat_decode_gpt for the exact
// field offsets and the GPT GUID comparison.
package partition

import "github.com/mbitsnbites/mfat/internal/blockio"

// Kind is the sum-type discriminant for a partition record, replacing the
// original C library's two parallel "is it FAT16" / "is it FAT32" fields
// (spec.md §9 Design Note "Tagged partition type").
type Kind int

const (
	// Unknown means a partition slot that was probed and rejected (bad BPB
	// signature, unsupported sector size, or FAT12 classification).
	Unknown Kind = iota
	// Undecided means a partition table entry claimed a FAT type but the BPB
	// hasn't been read yet.
	Undecided
	// Fat16 is a classified FAT16 volume.
	Fat16
	// Fat32 is a classified FAT32 volume.
	Fat32
)

func (k Kind) String() string {
	switch k {
	case Undecided:
		return "undecided"
	case Fat16:
		return "fat16"
	case Fat32:
		return "fat32"
	default:
		return "unknown"
	}
}

// Partition is one entry in the fixed-size partition table populated during
// mount (spec.md §3 "Partition record"). RootDirBlock is meaningful only for
// Fat16, RootDirCluster only for Fat32; the other is always zero, consistent
// with the original's "the unused field is zero" note, now made explicit by
// the Kind discriminant instead of relied upon by convention.
type Partition struct {
	Kind Kind

	FirstBlock     blockio.LogicalBlock
	NumBlocks      uint32
	FirstDataBlock blockio.LogicalBlock

	BlocksPerCluster  uint32
	BlocksPerFAT      uint32
	NumFATs           uint32
	NumReservedBlocks uint32
	NumClusters       uint32
	BlocksInRootDir   uint32

	RootDirBlock   blockio.LogicalBlock
	RootDirCluster uint32

	// Boot is the advisory bootable/active flag copied from the partition
	// table entry (spec.md §3, §7 "Partition boot/active flag surfaced to
	// callers").
	Boot bool
}

// ClusterBytes returns the number of bytes covered by one cluster.
func (p *Partition) ClusterBytes() uint32 {
	return p.BlocksPerCluster * blockio.BlockSize
}

// FirstBlockOfCluster implements spec.md §4.6's
// first_block_of_cluster(part, cluster) = first_data_block + (cluster-2)*blocks_per_cluster.
func (p *Partition) FirstBlockOfCluster(cluster uint32) blockio.LogicalBlock {
	return p.FirstDataBlock + blockio.LogicalBlock((cluster-2)*p.BlocksPerCluster)
}
