package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// ownerWrite is the owner write permission bit.
const ownerWrite fs.FileMode = 0o200

// Rimraf recursively deletes target.
//
// Root paths are refused with ErrRefusedRootDeletion before any I/O.
// A missing target is not an error. Directories have all of their children
// deleted concurrently before the directory itself is removed. Symbolic
// links are removed, never followed. Files without the owner write bit get
// it added before being unlinked.
func (f *FS) Rimraf(target string) error {
	if f.IsRootPath(target) {
		return fmt.Errorf("%w: %q", ErrRefusedRootDeletion, target)
	}
	f.log().Debug("removing", "path", target)
	return rimraf(target)
}

func rimraf(target string) error {
	info, err := os.Lstat(target)
	if err != nil {
		return ignoreNotExist("lstat", target, err)
	}

	if info.IsDir() {
		children, err := os.ReadDir(target)
		if err != nil {
			return ignoreNotExist("readdir", target, err)
		}
		var g errgroup.Group
		for _, child := range children {
			p := filepath.Join(target, child.Name())
			g.Go(func() error {
				return rimraf(p)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return ignoreNotExist("rmdir", target, os.Remove(target))
	}

	if info.Mode().IsRegular() && info.Mode().Perm()&ownerWrite == 0 {
		if err := os.Chmod(target, info.Mode().Perm()|ownerWrite); err != nil {
			return ignoreNotExist("chmod", target, err)
		}
	}
	return ignoreNotExist("unlink", target, os.Remove(target))
}

func ignoreNotExist(op, path string, err error) error {
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return wrapIO(op, path, err)
}
