//go:build unix

// Package platform holds OS-specific helpers for opening archive sources.
package platform

import (
	"errors"
	"os"
	"syscall"
)

// ErrSymlink is returned when attempting to open a symbolic link.
var ErrSymlink = errors.New("symbolic link not followed")

// OpenFileNoFollow opens name for reading without following a final symlink.
// Returns ErrSymlink if the path is a symbolic link.
func OpenFileNoFollow(name string) (*os.File, error) {
	f, err := os.OpenFile(name, os.O_RDONLY|syscall.O_NOFOLLOW, 0)
	if err != nil {
		if errors.Is(err, syscall.ELOOP) {
			return nil, ErrSymlink
		}
		return nil, err
	}
	return f, nil
}
