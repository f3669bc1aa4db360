// Package blockio wraps the pair of caller-supplied block read/write
// callbacks in a small adapter, the way [github.com/dargueta/disko]'s
// drivers/common.BlockStream wraps an io.Seeker. Unlike BlockStream, this
// adapter has no notion of a backing stream at all: the callbacks are the
// only thing this library knows about the storage medium, per spec.
package blockio

import (
	"github.com/mbitsnbites/mfat/errors"
)

// BlockSize is the only block size this library supports. Partitions whose
// BPB claims a different sector size are rejected during BPB decoding.
const BlockSize = 512

// LogicalBlock is an absolute block number on the device, counted from block
// 0 regardless of partitioning.
type LogicalBlock uint32

// ReadBlockFunc reads exactly BlockSize bytes for blockNo into buf. buf is
// guaranteed to be BlockSize bytes long. It returns a non-nil error if the
// read could not be completed.
type ReadBlockFunc func(blockNo LogicalBlock, buf []byte) error

// WriteBlockFunc writes the BlockSize bytes in buf to blockNo. It returns a
// non-nil error if the write could not be completed.
type WriteBlockFunc func(blockNo LogicalBlock, buf []byte) error

// Device forwards whole-block reads and writes to caller-supplied callbacks.
// It performs no buffering or interpretation of its own; that's the job of
// the block cache layered on top of it.
type Device struct {
	read  ReadBlockFunc
	write WriteBlockFunc
}

// New creates a Device around the given callbacks. write may be nil; a
// Device with no write callback fails every WriteBlock call with
// errors.ErrReadOnlyFileSystem.
func New(read ReadBlockFunc, write WriteBlockFunc) *Device {
	return &Device{read: read, write: write}
}

// ReadBlock fills buf (which must be exactly BlockSize bytes) with the
// contents of blockNo.
func (d *Device) ReadBlock(blockNo LogicalBlock, buf []byte) errors.DriverError {
	if len(buf) != BlockSize {
		return errors.ErrInvalidArgument.WithMessage("buffer must be exactly one block")
	}
	if err := d.read(blockNo, buf); err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	return nil
}

// WriteBlock writes buf (which must be exactly BlockSize bytes) to blockNo.
func (d *Device) WriteBlock(blockNo LogicalBlock, buf []byte) errors.DriverError {
	if d.write == nil {
		return errors.ErrReadOnlyFileSystem
	}
	if len(buf) != BlockSize {
		return errors.ErrInvalidArgument.WithMessage("buffer must be exactly one block")
	}
	if err := d.write(blockNo, buf); err != nil {
		return errors.ErrIOFailed.Wrap(err)
	}
	return nil
}
