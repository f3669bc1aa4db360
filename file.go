package mfat

import (
	"github.com/mbitsnbites/mfat/errors"
	"github.com/mbitsnbites/mfat/internal/cursor"
	"github.com/mbitsnbites/mfat/internal/fatchain"
	"github.com/mbitsnbites/mfat/internal/partition"
	"github.com/mbitsnbites/mfat/internal/pathwalk"
)

// rootCursor builds the cursor for the active partition's root directory:
// a Chained cursor at root_dir_cluster for FAT32, or the FAT16 root's
// bounded Linear pseudo-cursor (spec.md §3, §4.8, §9).
func (v *Volume) rootCursor(partNo int) cursor.DirCursor {
	p := &v.partitions[partNo]
	if p.Kind == partition.Fat32 {
		c := cursor.NewChained(v.walkerFor(partNo), p.RootDirCluster, p.BlocksPerCluster, 0)
		return &c
	}
	c := cursor.NewLinear(p.RootDirBlock, p.BlocksInRootDir)
	return &c
}

// Open resolves path against the active partition and returns a new file
// descriptor (spec.md §4.9 open()).
func (v *Volume) Open(path string, oflag int) (int, error) {
	if !v.mounted() {
		return -1, v.fail(errors.ErrInvalidArgument.WithMessage("volume is not mounted"))
	}
	if oflag&(ORdonly|OWronly) == 0 {
		return -1, v.fail(errors.ErrInvalidArgument.WithMessage("oflag must set ORdonly or OWronly"))
	}

	p := v.activePart()
	walker := v.walkerFor(v.activePartition)
	result, err := pathwalk.Resolve(path, v.rootCursor(v.activePartition), v.dataCache, walker, p.BlocksPerCluster)
	if err != nil {
		return -1, v.fail(err)
	}
	if !result.Exists {
		return -1, v.fail(errors.ErrNotFound)
	}
	if result.IsDir {
		return -1, v.fail(errors.ErrIsADirectory)
	}

	slot := -1
	for i := range v.files {
		if !v.files[i].open {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1, v.fail(errors.ErrTooManyOpenFiles)
	}

	v.files[slot] = fileDescriptor{
		open:             true,
		oflag:            oflag,
		offset:           0,
		currentCluster:   result.FirstCluster,
		partNo:           v.activePartition,
		size:             result.Size,
		firstCluster:     result.FirstCluster,
		isDir:            result.IsDir,
		isReadOnly:       result.IsReadOnly,
		writeTime:        result.WriteTime,
		writeDate:        result.WriteDate,
		blocksPerCluster: p.BlocksPerCluster,
		dirEntryBlock:    result.DirEntryBlock,
		dirEntryOffset:   result.DirEntryOffset,
	}
	return slot, nil
}

func (v *Volume) fdFor(fd int) (*fileDescriptor, errors.DriverError) {
	if fd < 0 || fd >= len(v.files) || !v.files[fd].open {
		return nil, errors.ErrInvalidFileDescriptor
	}
	return &v.files[fd], nil
}

// Close marks fd free, flushing dirty blocks first if it was opened for
// write (spec.md §4.9 close()).
func (v *Volume) Close(fd int) error {
	f, err := v.fdFor(fd)
	if err != nil {
		return v.fail(err)
	}
	if f.oflag&OWronly != 0 {
		if serr := v.Sync(); serr != nil {
			return serr
		}
	}
	*f = fileDescriptor{}
	return nil
}

// Read fills buf with up to len(buf) bytes starting at fd's current offset,
// implementing the three-phase head/body/tail algorithm of spec.md §4.9.
func (v *Volume) Read(fd int, buf []byte) (int, error) {
	f, ferr := v.fdFor(fd)
	if ferr != nil {
		return -1, v.fail(ferr)
	}
	if f.oflag&ORdonly == 0 {
		return -1, v.fail(errors.ErrInvalidArgument.WithMessage("fd not opened for reading"))
	}

	remaining := int(f.size) - int(f.offset)
	if remaining < 0 {
		remaining = 0
	}
	n := len(buf)
	if n > remaining {
		n = remaining
	}
	if n <= 0 {
		return 0, nil
	}

	walker := v.walkerFor(f.partNo)
	cur := cursor.NewChained(walker, f.currentCluster, f.blocksPerCluster, uint64(f.offset))

	read := 0
	left := n

	// Head: finish out a partially-consumed block.
	if f.offset%512 != 0 {
		block, err := v.dataCache.Get(cur.BlockNo())
		if err != nil {
			return -1, v.fail(err)
		}
		offInBlock := int(f.offset % 512)
		tail := 512 - offInBlock
		take := tail
		if take > left {
			take = left
		}
		copy(buf[read:read+take], block[offInBlock:offInBlock+take])
		read += take
		left -= take
		f.offset += int64(take)

		if take == tail {
			if _, aerr := cur.Advance(walker); aerr != nil {
				return -1, v.fail(aerr)
			}
		}
	}

	// Body: aligned bulk blocks go straight into the caller's buffer,
	// bypassing the cache (spec.md §4.9, §9 "Write-bypass read path").
	for left >= 512 {
		if walker.IsEndOfChain(cur.ClusterNo()) {
			return -1, v.fail(errors.ErrFileSystemCorrupted.WithMessage("read: chain ended before file size was satisfied"))
		}
		if err := v.dev.ReadBlock(cur.BlockNo(), buf[read:read+512]); err != nil {
			return -1, v.fail(err)
		}
		read += 512
		left -= 512
		f.offset += 512

		if _, aerr := cur.Advance(walker); aerr != nil {
			return -1, v.fail(aerr)
		}
	}

	// Tail: remaining bytes smaller than one block go through the cache.
	if left > 0 {
		if walker.IsEndOfChain(cur.ClusterNo()) {
			return -1, v.fail(errors.ErrFileSystemCorrupted.WithMessage("read: chain ended before file size was satisfied"))
		}
		block, err := v.dataCache.Get(cur.BlockNo())
		if err != nil {
			return -1, v.fail(err)
		}
		copy(buf[read:read+left], block[:left])
		read += left
		f.offset += int64(left)
	}

	f.currentCluster = cur.ClusterNo()
	return read, nil
}

// Write is a stub: the write path is not yet implemented (spec.md §4.9,
// §1 Non-goals).
func (v *Volume) Write(fd int, buf []byte) (int, error) {
	if _, err := v.fdFor(fd); err != nil {
		return -1, v.fail(err)
	}
	return -1, v.fail(errors.ErrReadOnlyFileSystem)
}

// Lseek repositions fd's offset, walking the FAT chain as needed to keep
// current_cluster consistent with the new offset (spec.md §4.9 lseek()).
func (v *Volume) Lseek(fd int, offset int64, whence int) (int64, error) {
	f, ferr := v.fdFor(fd)
	if ferr != nil {
		return -1, v.fail(ferr)
	}

	var target int64
	switch whence {
	case SeekSet:
		target = offset
	case SeekCur:
		target = f.offset + offset
	case SeekEnd:
		target = int64(f.size) + offset
	default:
		return -1, v.fail(errors.ErrInvalidArgument)
	}
	if target < 0 || target > int64(f.size) {
		return -1, v.fail(errors.ErrInvalidArgument.WithMessage("seek target out of range"))
	}

	clusterBytes := int64(f.blocksPerCluster) * 512
	targetIndex := target / clusterBytes
	currentIndex := f.offset / clusterBytes

	walker := v.walkerFor(f.partNo)
	var newCluster uint32
	var err errors.DriverError

	switch {
	case targetIndex == currentIndex:
		newCluster = f.currentCluster
	case targetIndex > currentIndex:
		newCluster, err = walkForward(walker, f.currentCluster, targetIndex-currentIndex)
	default:
		newCluster, err = walkForward(walker, f.firstCluster, targetIndex)
	}
	if err != nil {
		return -1, v.fail(err)
	}

	f.offset = target
	f.currentCluster = newCluster
	return target, nil
}

// walkForward follows walker steps times from start, per spec.md §4.9
// lseek()'s "walk forward by (target/cluster_bytes) - current_cluster_index
// steps".
func walkForward(walker *fatchain.Walker, start uint32, steps int64) (uint32, errors.DriverError) {
	cluster := start
	for i := int64(0); i < steps; i++ {
		next, err := walker.Next(cluster)
		if err != nil {
			if de, ok := err.(errors.DriverError); ok {
				return 0, de
			}
			return 0, errors.ErrFileSystemCorrupted.Wrap(err)
		}
		cluster = next
	}
	return cluster, nil
}

// Stat resolves path and reports its size/mode/mtime without opening it
// (spec.md §4.9 stat()).
func (v *Volume) Stat(path string, st *Stat) error {
	if !v.mounted() {
		return v.fail(errors.ErrInvalidArgument.WithMessage("volume is not mounted"))
	}
	p := v.activePart()
	walker := v.walkerFor(v.activePartition)
	result, err := pathwalk.Resolve(path, v.rootCursor(v.activePartition), v.dataCache, walker, p.BlocksPerCluster)
	if err != nil {
		return v.fail(err)
	}
	if !result.Exists {
		return v.fail(errors.ErrNotFound)
	}

	*st = statFromResult(result)
	return nil
}

// Fstat reports the same information as Stat for an already-open fd, built
// from the directory entry fields recorded at Open time (spec.md §4.9
// fstat()) through the same statFromResult path Stat uses, so the two never
// drift apart on mode bits or mtime decoding.
func (v *Volume) Fstat(fd int, st *Stat) error {
	f, err := v.fdFor(fd)
	if err != nil {
		return v.fail(err)
	}

	*st = statFromResult(pathwalk.Result{
		Exists:       true,
		IsDir:        f.isDir,
		IsReadOnly:   f.isReadOnly,
		Size:         f.size,
		FirstCluster: f.firstCluster,
		WriteTime:    f.writeTime,
		WriteDate:    f.writeDate,
	})
	return nil
}
