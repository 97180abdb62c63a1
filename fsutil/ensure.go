package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// maxEnsureAttempts bounds how often EnsureFolder retries creating a folder
// whose parent vanished again after it was ensured.
const maxEnsureAttempts = 3

// EnsureFolder creates folder and any missing parents.
//
// An existing directory is left untouched. An existing non-directory fails
// with ErrNotADirectory. Recursion stops at the root of the path, which is
// never created. Names the OS considers invalid keep failing with a
// not-exist error and that error is returned after a bounded number of
// attempts.
func (f *FS) EnsureFolder(folder string) error {
	if err := f.ensureFolder(filepath.Clean(folder)); err != nil {
		return wrapIO("mkdir", folder, err)
	}
	return nil
}

func (f *FS) ensureFolder(folder string) error {
	if folder == filepath.Dir(folder) {
		return nil
	}

	var err error
	for range maxEnsureAttempts {
		err = f.mkdir(folder)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		parent := filepath.Dir(folder)
		if parent == folder {
			return err
		}
		if perr := f.ensureFolder(parent); perr != nil {
			return perr
		}
	}
	return err
}

// mkdir creates folder, treating an existing directory as success.
func mkdir(folder string) error {
	err := os.Mkdir(folder, 0o777)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return err
	}
	info, statErr := os.Lstat(folder)
	if statErr != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, folder)
	}
	return nil
}
