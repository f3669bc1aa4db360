// Package pathwalk canonicalizes 8.3 names and resolves paths to directory
// entries (spec.md §4.8, component C8). It's grounded on
// original_source/mfat.c's _mfat_canonicalize_fname and _mfat_find_file,
// with one deliberate divergence documented in DESIGN.md: this package
// skips 0xE5 (deleted) and 0x0F-attribute (long-name) entries during
// lookup, because spec.md §4.8 says so explicitly, where the original C
// source left it to chance.
package pathwalk

import (
	"github.com/mbitsnbites/mfat/errors"
	"github.com/mbitsnbites/mfat/internal/blockcache"
	"github.com/mbitsnbites/mfat/internal/blockio"
	"github.com/mbitsnbites/mfat/internal/cursor"
	"github.com/mbitsnbites/mfat/internal/dirent"
)

// isAllowed reports whether r is one of the characters spec.md §4.8 permits
// in a canonicalized 8.3 name (after upper-casing).
func isAllowed(r byte) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '$', '%', '-', '_', '@', '~', '`', '!', '(', ')', '{', '}', '^', '#', '&':
		return true
	}
	return false
}

func upper(r byte) byte {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}

// Canonicalize converts a single path component (no separators) into an
// 11-byte, space-padded 8.3 name without the dot (spec.md §4.8).
func Canonicalize(component string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}

	name := component
	ext := ""
	if dot := indexByte(component, '.'); dot >= 0 {
		name = component[:dot]
		ext = component[dot+1:]
	}

	n := len(name)
	if n > 8 {
		n = 8
	}
	for i := 0; i < n; i++ {
		c := upper(name[i])
		if !isAllowed(c) {
			c = '!'
		}
		out[i] = c
	}

	m := len(ext)
	if m > 3 {
		m = 3
	}
	for i := 0; i < m; i++ {
		c := upper(ext[i])
		if !isAllowed(c) {
			c = '!'
		}
		out[8+i] = c
	}

	return out
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// Split breaks path into canonicalized, non-empty components, skipping
// empty and "." segments (spec.md §4.8). Separators are "/" and "\".
func Split(path string) [][11]byte {
	var components [][11]byte
	start := 0
	flush := func(end int) {
		seg := path[start:end]
		if seg == "" || seg == "." {
			return
		}
		components = append(components, Canonicalize(seg))
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '/' || path[i] == '\\' {
			flush(i)
			start = i + 1
		}
	}
	flush(len(path))
	return components
}

// Result describes the outcome of resolving a path (spec.md §4.8 "On
// match"/"If the directory ends").
type Result struct {
	Exists       bool
	IsDir        bool
	IsReadOnly   bool
	Size         uint32
	FirstCluster uint32
	WriteTime    uint16
	WriteDate    uint16

	DirEntryBlock  uint32
	DirEntryOffset int
}

// Resolve walks path starting from root, descending through subdirectories
// as needed, and returns the entry for the final component. blocksPerCluster
// is needed to build a fresh Chained cursor whenever the walk descends into
// a subdirectory.
func Resolve(path string, root cursor.DirCursor, cache *blockcache.Cache, walker cursor.ChainWalker, blocksPerCluster uint32) (Result, errors.DriverError) {
	components := Split(path)
	if len(components) == 0 {
		return Result{Exists: true, IsDir: true}, nil
	}

	cur := root
	for i, target := range components {
		entry, blockNo, off, found, err := findInDirectory(cur, target, cache, walker)
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Result{Exists: false}, nil
		}

		last := i == len(components)-1
		if !last {
			if !entry.IsDir() {
				return Result{}, errors.ErrNotADirectory
			}
			child := cursor.NewChained(walker, entry.FirstCluster, blocksPerCluster, 0)
			cur = &child
			continue
		}

		return Result{
			Exists:         true,
			IsDir:          entry.IsDir(),
			IsReadOnly:     entry.IsReadOnly(),
			Size:           entry.Size,
			FirstCluster:   entry.FirstCluster,
			WriteTime:      entry.WriteTime,
			WriteDate:      entry.WriteDate,
			DirEntryBlock:  uint32(blockNo),
			DirEntryOffset: off,
		}, nil
	}

	return Result{}, nil
}

// findInDirectory scans dc for an entry whose canonical name matches target,
// skipping deleted and long-name entries (spec.md §4.8).
func findInDirectory(dc cursor.DirCursor, target [11]byte, cache *blockcache.Cache, walker cursor.ChainWalker) (dirent.Entry, blockio.LogicalBlock, int, bool, errors.DriverError) {
	for {
		blockNo := dc.BlockNo()
		buf, err := cache.Get(blockNo)
		if err != nil {
			return dirent.Entry{}, 0, 0, false, err
		}
		block := buf[:]

		for off := 0; off+dirent.Size <= len(block); off += dirent.Size {
			e := dirent.Decode(block, off)
			if e.IsEnd() {
				return dirent.Entry{}, 0, 0, false, nil
			}
			if e.IsDeleted() || e.IsLongName() {
				continue
			}
			if e.RawName == target {
				return e, blockNo, off, true, nil
			}
		}

		ok, aerr := dc.Advance(walker)
		if aerr != nil {
			return dirent.Entry{}, 0, 0, false, aerr
		}
		if !ok {
			return dirent.Entry{}, 0, 0, false, nil
		}
	}
}
