package mfat

// Open flags, a bit field (spec.md §6). open() rejects an oflag with
// neither ORdonly nor OWronly set.
const (
	ORdonly    = 1
	OWronly    = 2
	ORdwr      = ORdonly | OWronly
	OAppend    = 4
	OCreat     = 8
	ODirectory = 16
)

// lseek whence values (spec.md §6).
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// stat mode bits (spec.md §6): IFREG/IFDIR plus the usual POSIX rwx bits,
// grounded on the teacher's root flags.go constant block.
const (
	SIfreg = 0x8000
	SIfdir = 0x4000

	SIrusr = 0o400
	SIwusr = 0o200
	SIxusr = 0o100
	SIrgrp = 0o040
	SIwgrp = 0o020
	SIxgrp = 0o010
	SIroth = 0o004
	SIwoth = 0o002
	SIxoth = 0o001

	SIrwxu = SIrusr | SIwusr | SIxusr
	SIrwxg = SIrgrp | SIwgrp | SIxgrp
	SIrwxo = SIroth | SIwoth | SIxoth
)
