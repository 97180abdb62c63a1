package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
)

// EntryType classifies a listed path.
type EntryType uint8

const (
	EntryFile EntryType = iota
	EntryDir
	EntrySymlink
)

// String returns the string representation of the entry type.
func (t EntryType) String() string {
	switch t {
	case EntryFile:
		return "file"
	case EntryDir:
		return "dir"
	case EntrySymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Entry describes a path produced by Readdirp.
type Entry struct {
	// Path is the folder argument joined with the path relative to it.
	Path    string
	Type    EntryType
	ModTime time.Time
	Mode    fs.FileMode
}

// walkState collects results from concurrent fastwalk callbacks.
type walkState struct {
	mu       sync.Mutex
	root     string
	entries  []Entry
	dirs     map[string]Entry
	nonEmpty map[string]struct{}
}

// Readdirp recursively lists the contents of folder.
//
// Non-empty directories are not reported, only their contents; empty
// directories are reported with type EntryDir. Symbolic links are reported
// with type EntrySymlink and never followed. Anything else that is not a
// directory is reported as EntryFile. Order is not defined.
//
// Paths that vanish while the walk is in progress are skipped. A missing
// folder, or one that is not a directory, is an error. A symbolic link at
// folder itself is followed; paths are still reported under folder.
func (f *FS) Readdirp(folder string) ([]Entry, error) {
	root := filepath.Clean(folder)
	info, err := os.Stat(root)
	if err != nil {
		return nil, wrapIO("stat", root, err)
	}
	if !info.IsDir() {
		return nil, wrapIO("readdir", root, ErrNotADirectory)
	}
	walkRoot, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	st := &walkState{
		root:     walkRoot,
		dirs:     make(map[string]Entry),
		nonEmpty: make(map[string]struct{}),
	}
	conf := fastwalk.Config{Follow: false}
	if err := fastwalk.Walk(&conf, walkRoot, st.visit); err != nil {
		return nil, wrapIO("readdir", root, err)
	}

	for p, dir := range st.dirs {
		if _, ok := st.nonEmpty[p]; !ok {
			st.entries = append(st.entries, dir)
		}
	}
	if walkRoot != root {
		if err := rebase(st.entries, walkRoot, root); err != nil {
			return nil, err
		}
	}
	f.log().Debug("listed folder", "folder", root, "entries", len(st.entries))
	return st.entries, nil
}

// resolveRoot returns the directory a symlinked root points to, or root
// unchanged.
func resolveRoot(root string) (string, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return "", wrapIO("lstat", root, err)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return root, nil
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", wrapIO("resolve", root, err)
	}
	return resolved, nil
}

// rebase rewrites entry paths listed under from to sit under to.
func rebase(entries []Entry, from, to string) error {
	for i := range entries {
		rel, err := filepath.Rel(from, entries[i].Path)
		if err != nil {
			return wrapIO("rel", entries[i].Path, err)
		}
		entries[i].Path = filepath.Join(to, rel)
	}
	return nil
}

func (st *walkState) visit(path string, d fs.DirEntry, walkErr error) error {
	if walkErr != nil {
		if path != st.root && errors.Is(walkErr, fs.ErrNotExist) {
			st.forget(path)
			return nil
		}
		return wrapIO("readdir", path, walkErr)
	}
	if path == st.root {
		return nil
	}

	info, err := d.Info()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return wrapIO("lstat", path, err)
	}

	entry := Entry{
		Path:    path,
		Type:    EntryFile,
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}
	parent := filepath.Dir(path)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.nonEmpty[parent] = struct{}{}
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		entry.Type = EntrySymlink
		st.entries = append(st.entries, entry)
	case info.IsDir():
		entry.Type = EntryDir
		st.dirs[path] = entry
	default:
		st.entries = append(st.entries, entry)
	}
	return nil
}

// forget drops a directory that disappeared before it could be read.
func (st *walkState) forget(path string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.dirs, path)
}
