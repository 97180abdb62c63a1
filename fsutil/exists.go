package fsutil

import "os"

// PathExists reports whether path is accessible. Any failure, including
// permission errors and dangling symlinks, reports false.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PathExists reports whether path is accessible.
func (f *FS) PathExists(path string) bool {
	return PathExists(path)
}
