// Package cursor implements the cluster position cursor from spec.md §4.7
// (component C7): a position that can be advanced one block at a time,
// crossing cluster boundaries by consulting the FAT chain. It's grounded on
// the teacher's drivers/fat/driverbase.go cluster/sector walking helpers,
// redesigned per spec.md §9's "Cursor variants" note into a sum type
// (Chained for real cluster chains, Linear for the FAT16 root directory's
// disguised linear iterator) instead of a cluster_no==0 sentinel.
package cursor

import (
	"github.com/mbitsnbites/mfat/errors"
	"github.com/mbitsnbites/mfat/internal/blockio"
)

// ChainWalker is the subset of fatchain.Walker that a cursor needs to cross
// a cluster boundary. Declared here, satisfied structurally by
// *fatchain.Walker, so this package doesn't import fatchain.
type ChainWalker interface {
	Next(cluster uint32) (uint32, error)
	IsEndOfChain(cluster uint32) bool
	FirstBlockOfCluster(cluster uint32) blockio.LogicalBlock
}

// DirCursor is a position within a directory's contents, abstracting over
// whether that directory is a real cluster chain (Chained) or the FAT16
// root directory's fixed-size linear block run (Linear).
type DirCursor interface {
	// BlockNo returns the absolute block the cursor currently points at.
	BlockNo() blockio.LogicalBlock
	// Advance moves to the next block. ok is false when the cursor has run
	// out of blocks to visit (Linear only, its bound exhausted); err is set
	// if following a Chained cursor's FAT chain failed.
	Advance(w ChainWalker) (ok bool, err errors.DriverError)
}

// Chained is a cursor over a real cluster chain, used for files and for
// FAT32 (and any subdirectory's) directory contents.
type Chained struct {
	blocksPerCluster uint32
	clusterNo        uint32
	blockInCluster   uint32
	clusterStartBlk  blockio.LogicalBlock
}

// NewChained creates a Chained cursor positioned at byteOffset within the
// cluster chain starting at firstCluster (spec.md §4.7).
func NewChained(w ChainWalker, firstCluster uint32, blocksPerCluster uint32, byteOffset uint64) Chained {
	clusterBytes := uint64(blocksPerCluster) * blockio.BlockSize
	blockInCluster := uint32((byteOffset % clusterBytes) / blockio.BlockSize)
	return Chained{
		blocksPerCluster: blocksPerCluster,
		clusterNo:        firstCluster,
		blockInCluster:   blockInCluster,
		clusterStartBlk:  w.FirstBlockOfCluster(firstCluster),
	}
}

// ClusterNo returns the cluster the cursor currently points into.
func (c *Chained) ClusterNo() uint32 { return c.clusterNo }

// BlockNo implements DirCursor.
func (c *Chained) BlockNo() blockio.LogicalBlock {
	return c.clusterStartBlk + blockio.LogicalBlock(c.blockInCluster)
}

// Advance implements DirCursor (spec.md §4.7 advance()).
func (c *Chained) Advance(w ChainWalker) (bool, errors.DriverError) {
	c.blockInCluster++
	if c.blockInCluster < c.blocksPerCluster {
		return true, nil
	}

	next, err := w.Next(c.clusterNo)
	if err != nil {
		if de, ok := err.(errors.DriverError); ok {
			return false, de
		}
		return false, errors.ErrFileSystemCorrupted.Wrap(err)
	}

	c.clusterNo = next
	c.blockInCluster = 0
	c.clusterStartBlk = w.FirstBlockOfCluster(next)
	return true, nil
}

// Linear is the FAT16 root directory's pseudo-cursor: a bounded run of
// consecutive blocks with no cluster chain behind it (spec.md §3, §9).
type Linear struct {
	block     blockio.LogicalBlock
	remaining uint32
}

// NewLinear creates a Linear cursor starting at block, able to advance
// through numBlocks blocks in total (including the starting one).
func NewLinear(block blockio.LogicalBlock, numBlocks uint32) Linear {
	return Linear{block: block, remaining: numBlocks}
}

// BlockNo implements DirCursor.
func (l *Linear) BlockNo() blockio.LogicalBlock { return l.block }

// Advance implements DirCursor; w is unused since a Linear cursor never
// consults the FAT.
func (l *Linear) Advance(_ ChainWalker) (bool, errors.DriverError) {
	if l.remaining <= 1 {
		l.remaining = 0
		return false, nil
	}
	l.remaining--
	l.block++
	return true, nil
}
