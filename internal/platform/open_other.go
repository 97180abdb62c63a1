//go:build !unix

// Package platform holds OS-specific helpers for opening archive sources.
package platform

import (
	"errors"
	"io/fs"
	"os"
)

// ErrSymlink is returned when attempting to open a symbolic link.
var ErrSymlink = errors.New("symbolic link not followed")

// OpenFileNoFollow opens name for reading without following a final symlink.
// Returns ErrSymlink if the path is a symbolic link.
func OpenFileNoFollow(name string) (*os.File, error) {
	info, err := os.Lstat(name)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, ErrSymlink
	}
	return os.Open(name)
}
