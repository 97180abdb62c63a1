package fsutil

import "errors"

var (
	// ErrNotADirectory is returned when a path that must be a directory exists
	// as something else.
	ErrNotADirectory = errors.New("fsutil: not a directory")

	// ErrRefusedRootDeletion is returned when Rimraf is asked to delete a
	// filesystem root.
	ErrRefusedRootDeletion = errors.New("fsutil: refused to recursively delete root")
)

// IOError wraps an underlying filesystem failure with the operation and path
// that produced it.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// wrapIO returns err wrapped in an *IOError unless it already is one.
func wrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
