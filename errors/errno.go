// This is a compatibility shim for POSIX-defined errno codes across platforms.
// The syscall package doesn't define all the values we need on all systems,
// particularly things like EUCLEAN.
//
// Trimmed to the errno codes this module's error kinds (spec.md §7) actually
// raise: I/O failure, format/chain corruption, and the handful of argument
// and capacity errors open/read/lseek/stat can return.

package errors

import (
	"fmt"
)

type Errno int

var errorMessagesByCode map[Errno]string

const (
	EOK Errno = iota
	ENOENT
	EIO
	EBADF
	ENOTDIR
	EISDIR
	EINVAL
	EMFILE
	EROFS
	EUCLEAN
)

var ErrNotFound = New(ENOENT)
var ErrIOFailed = New(EIO)
var ErrInvalidFileDescriptor = New(EBADF)
var ErrNotADirectory = New(ENOTDIR)
var ErrIsADirectory = New(EISDIR)
var ErrInvalidArgument = New(EINVAL)
var ErrTooManyOpenFiles = New(EMFILE)
var ErrReadOnlyFileSystem = New(EROFS)
var ErrFileSystemCorrupted = New(EUCLEAN)

func init() {
	errorMessagesByCode = make(map[Errno]string, 16)
	errorMessagesByCode[ENOENT] = "No such file or directory"
	errorMessagesByCode[EIO] = "Input/output error"
	errorMessagesByCode[EBADF] = "Bad file descriptor"
	errorMessagesByCode[ENOTDIR] = "Not a directory"
	errorMessagesByCode[EISDIR] = "Is a directory"
	errorMessagesByCode[EINVAL] = "Invalid argument"
	errorMessagesByCode[EMFILE] = "Too many open files"
	errorMessagesByCode[EROFS] = "Read-only file system"
	errorMessagesByCode[EUCLEAN] = "Structure needs cleaning"
}

func StrError(code Errno) string {
	message, ok := errorMessagesByCode[code]
	if ok {
		return message
	}
	return fmt.Sprintf("error %d not recognized.", int(code))
}
