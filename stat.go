package mfat

import (
	"time"

	"github.com/mbitsnbites/mfat/internal/dirent"
	"github.com/mbitsnbites/mfat/internal/pathwalk"
)

// Stat is the information returned by Volume.Stat and Volume.Fstat (spec.md
// §4.9, §6), grounded on the shape of the teacher's disko.DirectoryEntry
// but trimmed to what a FAT directory entry can actually populate.
type Stat struct {
	Size  int64
	Mode  uint32
	Mtime time.Time
}

// statFromResult builds a Stat from a resolved path, per spec.md §4.9:
// IFREG/IFDIR plus r/x always set and w set unless the read-only attribute
// is present.
func statFromResult(r pathwalk.Result) Stat {
	mode := uint32(SIrusr | SIxusr | SIrgrp | SIxgrp | SIroth | SIxoth)
	if !r.IsReadOnly {
		mode |= SIwusr | SIwgrp | SIwoth
	}
	if r.IsDir {
		mode |= SIfdir
	} else {
		mode |= SIfreg
	}

	return Stat{
		Size:  int64(r.Size),
		Mode:  mode,
		Mtime: dirent.DecodeTime(r.WriteTime, r.WriteDate),
	}
}
