// Package dirent decodes 32-byte FAT directory entries, grounded on the
// teacher's drivers/fat/dirent.go (RawDirent/Dirent, DateFromInt,
// TimestampFromParts, AttrFlagsToFileMode) and on spec.md §4.8-4.9 for the
// exact field offsets and the write-time/write-date bit layout.
package dirent

import (
	"time"

	"github.com/mbitsnbites/mfat/internal/codec"
)

// Size is the length in bytes of one raw directory entry.
const Size = 32

// Attribute bits (offset 11 within the entry), matching
// original_source/mfat.c's MFAT_ATTR_* constants.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = 0x0F
)

// Entry is a decoded 32-byte directory entry.
type Entry struct {
	RawName      [11]byte
	Attr         byte
	WriteTime    uint16
	WriteDate    uint16
	FirstCluster uint32
	Size         uint32
}

// Decode reads one directory entry out of block at byte offset off.
func Decode(block []byte, off int) Entry {
	e := Entry{Attr: block[off+11]}
	copy(e.RawName[:], block[off:off+11])

	clusterHigh := uint32(codec.Word(block[off+20 : off+22]))
	clusterLow := uint32(codec.Word(block[off+26 : off+28]))
	e.FirstCluster = clusterHigh<<16 | clusterLow

	e.WriteTime = codec.Word(block[off+22 : off+24])
	e.WriteDate = codec.Word(block[off+24 : off+26])
	e.Size = codec.DWord(block[off+28 : off+32])
	return e
}

// IsEnd reports whether this entry (and every subsequent one in the
// directory) is unused, i.e. the first byte is 0x00 (spec.md §4.8).
func (e Entry) IsEnd() bool { return e.RawName[0] == 0x00 }

// IsDeleted reports whether this slot held a file that has since been
// deleted (first byte 0xE5).
func (e Entry) IsDeleted() bool { return e.RawName[0] == 0xE5 }

// IsLongName reports whether this entry is a VFAT long-name fragment, which
// this library skips rather than matching against (spec.md §4.8).
func (e Entry) IsLongName() bool { return e.Attr == AttrLongName }

// IsDir reports whether the directory attribute bit is set.
func (e Entry) IsDir() bool { return e.Attr&AttrDirectory != 0 }

// IsReadOnly reports whether the read-only attribute bit is set.
func (e Entry) IsReadOnly() bool { return e.Attr&AttrReadOnly != 0 }

// ModTime decodes the FAT write date/time fields into a time.Time, per
// spec.md §4.9 stat(): hour=bits15-11, minute=bits10-5, second=2*bits4-0 of
// WriteTime; year=1980+bits15-9, month=bits8-5, day=bits4-0 of WriteDate.
func (e Entry) ModTime() time.Time {
	return DecodeTime(e.WriteTime, e.WriteDate)
}

// DecodeTime decodes a raw FAT write-time/write-date pair into a time.Time,
// per spec.md §4.9 stat(). It's split out from Entry.ModTime so callers that
// only carry the raw fields (e.g. pathwalk.Result) don't need a full Entry.
func DecodeTime(writeTime, writeDate uint16) time.Time {
	hour := int(writeTime>>11) & 0x1F
	minute := int(writeTime>>5) & 0x3F
	second := (int(writeTime) & 0x1F) * 2

	year := 1980 + int(writeDate>>9)&0x7F
	month := int(writeDate>>5) & 0x0F
	day := int(writeDate) & 0x1F

	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}
