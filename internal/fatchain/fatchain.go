// Package fatchain walks singly-linked FAT16/FAT32 allocation chains
// (spec.md §4.6, component C6), grounded on the teacher's
// drivers/fat/driverbase.go cluster/sector arithmetic and on
// original_source/mfat.c's _mfat_next_cluster for the exact EOC/BAD
// normalization rules.
package fatchain

import (
	"github.com/mbitsnbites/mfat/errors"
	"github.com/mbitsnbites/mfat/internal/blockcache"
	"github.com/mbitsnbites/mfat/internal/blockio"
	"github.com/mbitsnbites/mfat/internal/codec"
	"github.com/mbitsnbites/mfat/internal/partition"
)

// Free, Bad, and the EOC threshold are all expressed in the normalized
// FAT32 numeric range; FAT16 codes are folded into this range by Walker.Next
// (spec.md §9 "EOC sentinel encoding").
const (
	Free           uint32 = 0x00000000
	Bad            uint32 = 0x0FFFFFF7
	eocThreshold   uint32 = 0x0FFFFFF8
	fat32EntryMask uint32 = 0x0FFFFFFF
	fat16HighBits  uint32 = 0x0FFF0000
)

// IsEndOfChain reports whether a normalized FAT entry value is an
// End-of-Chain marker.
func IsEndOfChain(value uint32) bool {
	return value >= eocThreshold
}

// Walker follows the FAT chain belonging to one partition, reading FAT
// blocks through the shared FAT-class cache.
type Walker struct {
	cache *blockcache.Cache
	part  *partition.Partition
}

// New creates a Walker for part, reading FAT blocks through cache (which
// must be the Volume's ClassFAT cache).
func New(cache *blockcache.Cache, part *partition.Partition) *Walker {
	return &Walker{cache: cache, part: part}
}

// Next returns the cluster following cluster in the chain (spec.md §4.6).
// It fails if the FAT entry is Free or Bad; EOC values are returned
// successfully since the current cluster is still in-file.
func (w *Walker) Next(cluster uint32) (uint32, error) {
	entrySize := uint32(2)
	if w.part.Kind == partition.Fat32 {
		entrySize = 4
	}

	byteOffset := entrySize * cluster
	blockNo := w.part.FirstBlock + blockio.LogicalBlock(w.part.NumReservedBlocks) + blockio.LogicalBlock(byteOffset/blockio.BlockSize)
	byteInBlock := byteOffset % blockio.BlockSize

	buf, err := w.cache.Get(blockNo)
	if err != nil {
		return 0, err
	}

	slice := buf[:]
	var raw uint32
	if entrySize == 4 {
		raw = codec.DWord(slice[byteInBlock:byteInBlock+4]) & fat32EntryMask
	} else {
		raw = uint32(codec.Word(slice[byteInBlock : byteInBlock+2]))
		if raw >= 0xFFF7 {
			raw |= fat16HighBits
		}
	}

	if raw == Free {
		return 0, errors.ErrFileSystemCorrupted.WithMessage("next_cluster: free cluster in chain")
	}
	if raw == Bad {
		return 0, errors.ErrFileSystemCorrupted.WithMessage("next_cluster: BAD cluster in chain")
	}
	return raw, nil
}

// IsEndOfChain reports whether cluster is an EOC marker for this walker's
// partition (a thin method wrapper so callers holding a Walker don't need
// the package-level helper).
func (w *Walker) IsEndOfChain(cluster uint32) bool {
	return IsEndOfChain(cluster)
}

// FirstBlockOfCluster implements spec.md §4.6's first_block_of_cluster.
func (w *Walker) FirstBlockOfCluster(cluster uint32) blockio.LogicalBlock {
	return w.part.FirstBlockOfCluster(cluster)
}
