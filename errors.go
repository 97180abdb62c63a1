package zipper

import (
	"errors"

	"github.com/meigma/zipper/fsutil"
	"github.com/meigma/zipper/internal/codec"
)

// Sentinel errors specific to the zipper package.
var (
	// ErrCanceled is returned when an operation is aborted by Cancel or by its context.
	ErrCanceled = errors.New("zipper: operation canceled")

	// ErrInvalidEntryName is returned when an entry name or metadata path would
	// escape the destination or archive root.
	ErrInvalidEntryName = errors.New("zipper: invalid entry name")

	// ErrEmptyDestination is returned when Archive is called with an empty path.
	ErrEmptyDestination = errors.New("zipper: destination path must not be empty")

	// ErrBusy is returned when a second operation is started on an engine
	// whose previous operation has not settled.
	ErrBusy = errors.New("zipper: operation already in progress")

	// ErrTooManyEntries is returned when an archive has more entries than allowed.
	ErrTooManyEntries = errors.New("zipper: too many entries")

	// ErrSymlinkTargetTooLong is returned when a symlink entry's target exceeds
	// the configured limit.
	ErrSymlinkTargetTooLong = errors.New("zipper: symlink target too long")
)

// Errors re-exported from subpackages.
var (
	// ErrNotADirectory is returned when a required directory exists as a non-directory.
	ErrNotADirectory = fsutil.ErrNotADirectory

	// ErrRefusedRootDeletion is returned when overwrite would delete a filesystem root.
	ErrRefusedRootDeletion = fsutil.ErrRefusedRootDeletion

	// ErrFileChanged is returned in strict change detection mode when a source
	// file changes while it is archived.
	ErrFileChanged = codec.ErrFileChanged
)

// IOError wraps an underlying filesystem or codec failure with the operation
// and path involved.
type IOError = fsutil.IOError

func ioError(op, path string, err error) error {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
