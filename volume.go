// Package mfat is a minimal, read-only library for FAT16/FAT32 volumes
// accessed through a caller-supplied pair of block read/write callbacks.
// It has no knowledge of the underlying medium — SD card, disk image file,
// flash partition — and no notion of a file beyond what's reachable by
// walking a cluster chain from a directory entry.
//
// Mount returns a *Volume, which owns every piece of process state this
// library needs (partition table, block caches, open-file table). There is
// no package-level mutable state, and Volume is not safe for concurrent
// use — exactly one goroutine may hold a *Volume at a time (spec.md §5).
package mfat

import (
	"github.com/mbitsnbites/mfat/errors"
	"github.com/mbitsnbites/mfat/internal/blockcache"
	"github.com/mbitsnbites/mfat/internal/blockio"
	"github.com/mbitsnbites/mfat/internal/fatchain"
	"github.com/mbitsnbites/mfat/internal/partition"
)

// Default sizes, matching original_source/mfat.c's MFAT_NUM_CACHED_BLOCKS,
// MFAT_NUM_PARTITIONS, and MFAT_NUM_FDS, turned into runtime MountOptions
// instead of compile-time knobs (spec.md §9 REDESIGN FLAGS equivalent,
// recorded in SPEC_FULL.md §5.3).
const (
	defaultCacheSlotsPerClass = 2
	defaultMaxPartitions      = partition.MaxPartitions
	defaultMaxOpenFiles       = 4
)

// MountOptions configures a Mount call. The zero value resolves to the
// original library's defaults.
type MountOptions struct {
	// CacheSlotsPerClass is the number of slots in each of the Data and FAT
	// caches. Zero means defaultCacheSlotsPerClass.
	CacheSlotsPerClass int
	// MaxPartitions bounds how many partition table entries are decoded.
	// Zero means defaultMaxPartitions.
	MaxPartitions int
	// MaxOpenFiles bounds the size of the file descriptor table. Zero means
	// defaultMaxOpenFiles.
	MaxOpenFiles int
	// DisableGPT skips the GPT probe entirely, equivalent to building the
	// original library with MFAT_ENABLE_GPT unset (SPEC_FULL.md §7).
	DisableGPT bool
}

func (o MountOptions) resolved() MountOptions {
	if o.CacheSlotsPerClass <= 0 {
		o.CacheSlotsPerClass = defaultCacheSlotsPerClass
	}
	if o.MaxPartitions <= 0 {
		o.MaxPartitions = defaultMaxPartitions
	}
	if o.MaxOpenFiles <= 0 {
		o.MaxOpenFiles = defaultMaxOpenFiles
	}
	return o
}

// fileDescriptor is one entry in the fixed-size FD table (spec.md §3).
type fileDescriptor struct {
	open           bool
	oflag          int
	offset         int64
	currentCluster uint32

	partNo           int
	size             uint32
	firstCluster     uint32
	isDir            bool
	isReadOnly       bool
	writeTime        uint16
	writeDate        uint16
	blocksPerCluster uint32
	dirEntryBlock    uint32
	dirEntryOffset   int
}

// PartitionInfo is the public view of a partition table entry (spec.md §3,
// §7 "Partition boot/active flag surfaced to callers").
type PartitionInfo struct {
	Kind       string
	FirstBlock uint32
	NumBlocks  uint32
	Boot       bool
}

// Volume is an owned handle for one mounted device: the partition table,
// both block caches, and the open-file table (spec.md §9 Design Note
// "Global singleton context" — there is no equivalent of the original's
// statically allocated mfat_ctx_t here, only this struct).
type Volume struct {
	dev       *blockio.Device
	dataCache *blockcache.Cache
	fatCache  *blockcache.Cache

	partitions      []partition.Partition
	activePartition int

	files []fileDescriptor

	lastErrno errors.Errno
}

// Mount probes read/write for a partition table and a FAT volume, selecting
// the first bootable FAT partition if any, else the first FAT partition
// (spec.md §6 "Selected partition"). It fails if no FAT partition is found.
func Mount(read blockio.ReadBlockFunc, write blockio.WriteBlockFunc, opts MountOptions) (*Volume, error) {
	opts = opts.resolved()

	dev := blockio.New(read, write)
	dataCache := blockcache.New(dev, opts.CacheSlotsPerClass, blockcache.ClassData)
	fatCache := blockcache.New(dev, opts.CacheSlotsPerClass, blockcache.ClassFAT)

	parts, derr := discoverPartitions(dev, opts)
	if derr != nil {
		return nil, derr
	}

	for i := range parts {
		if parts[i].Kind != partition.Undecided {
			continue
		}
		if err := partition.Decode(dev, &parts[i]); err != nil {
			return nil, err
		}
	}

	active := -1
	for i := range parts {
		if (parts[i].Kind == partition.Fat16 || parts[i].Kind == partition.Fat32) && parts[i].Boot {
			active = i
			break
		}
	}
	if active < 0 {
		for i := range parts {
			if parts[i].Kind == partition.Fat16 || parts[i].Kind == partition.Fat32 {
				active = i
				break
			}
		}
	}
	if active < 0 {
		return nil, errors.ErrNotFound.WithMessage("no FAT16/FAT32 partition found")
	}

	return &Volume{
		dev:             dev,
		dataCache:       dataCache,
		fatCache:        fatCache,
		partitions:      parts,
		activePartition: active,
		files:           make([]fileDescriptor, opts.MaxOpenFiles),
	}, nil
}

func discoverPartitions(dev *blockio.Device, opts MountOptions) ([]partition.Partition, errors.DriverError) {
	if opts.DisableGPT {
		return partition.DiscoverWithoutGPT(dev, opts.MaxPartitions)
	}
	return partition.Discover(dev, opts.MaxPartitions)
}

// Unmount flushes both caches and clears the volume's state. The Volume
// must not be used after Unmount returns, matching spec.md §5 "unmount
// flushes then marks uninitialized".
func (v *Volume) Unmount() error {
	if err := v.Sync(); err != nil {
		return err
	}
	v.partitions = nil
	v.activePartition = -1
	v.files = nil
	v.dev = nil
	v.dataCache = nil
	v.fatCache = nil
	return nil
}

// Sync flushes every dirty block in both caches (spec.md §4.3
// "Write-back").
func (v *Volume) Sync() error {
	if err := v.dataCache.Flush(); err != nil {
		return v.fail(err)
	}
	if err := v.fatCache.Flush(); err != nil {
		return v.fail(err)
	}
	return nil
}

// SelectPartition switches the active partition used by path resolution and
// new opens. Spec.md §9 leaves unspecified what happens to file descriptors
// opened against the previous partition; this module lets them keep
// operating against the partition they recorded at open time (each FD
// carries its own partNo), so switching never corrupts an in-flight read —
// see DESIGN.md "Open Question Decisions".
func (v *Volume) SelectPartition(i int) error {
	if i < 0 || i >= len(v.partitions) {
		return v.fail(errors.ErrInvalidArgument)
	}
	k := v.partitions[i].Kind
	if k != partition.Fat16 && k != partition.Fat32 {
		return v.fail(errors.ErrInvalidArgument.WithMessage("partition is not a usable FAT volume"))
	}
	v.activePartition = i
	return nil
}

// PartitionInfo returns the partition table entry at index i.
func (v *Volume) PartitionInfo(i int) (PartitionInfo, error) {
	if i < 0 || i >= len(v.partitions) {
		return PartitionInfo{}, v.fail(errors.ErrInvalidArgument)
	}
	p := v.partitions[i]
	return PartitionInfo{
		Kind:       p.Kind.String(),
		FirstBlock: uint32(p.FirstBlock),
		NumBlocks:  p.NumBlocks,
		Boot:       p.Boot,
	}, nil
}

// Errno returns the Errno code of the last failed operation on this Volume
// (SPEC_FULL.md §5.1/§7 — an additive capability beyond the original's bare
// -1 return).
func (v *Volume) Errno() errors.Errno {
	return v.lastErrno
}

func (v *Volume) fail(err errors.DriverError) errors.DriverError {
	v.lastErrno = err.Errno()
	return err
}

func (v *Volume) activePart() *partition.Partition {
	return &v.partitions[v.activePartition]
}

// mounted reports whether the volume still has live state. It is false once
// Unmount has cleared the Volume, which guards Open and Stat against
// indexing partitions with a stale activePartition (Close/Read/Write/Lseek
// are already safe: fdFor's bounds check degrades cleanly on a nil files
// slice).
func (v *Volume) mounted() bool {
	return v.activePartition >= 0 && v.activePartition < len(v.partitions)
}

func (v *Volume) walkerFor(partNo int) *fatchain.Walker {
	return fatchain.New(v.fatCache, &v.partitions[partNo])
}
