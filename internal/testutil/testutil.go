// Package testutil provides builders for zip archives and directory trees
// used across package tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	kzip "github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// ZipEntry describes one record written by WriteZip.
type ZipEntry struct {
	// Name is stored verbatim, so tests can produce unsafe names.
	Name string
	Data []byte

	// Mode is the full file mode, including type bits such as fs.ModeSymlink.
	// Zero stores no unix attributes.
	Mode fs.FileMode

	Modified time.Time
}

// WriteZip writes entries, in order, to a new archive under t.TempDir and
// returns its path.
func WriteZip(t testing.TB, entries []ZipEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := kzip.NewWriter(f)
	for _, e := range entries {
		fh := &kzip.FileHeader{Name: e.Name, Method: kzip.Deflate, Modified: e.Modified}
		if e.Mode != 0 {
			fh.SetMode(e.Mode)
		}
		w, err := zw.CreateHeader(fh)
		require.NoError(t, err)
		_, err = w.Write(e.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

// ListedEntry is one record read back by ReadZip.
type ListedEntry struct {
	Name   string
	Data   []byte
	Mode   fs.FileMode
	Method uint16
}

// ReadZip returns every record of the archive at path in archive order.
// It reads with the standard library so that tests exercise a second codec.
// Zstd records are listed with nil Data.
func ReadZip(t testing.TB, path string) []ListedEntry {
	t.Helper()

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	out := make([]ListedEntry, 0, len(zr.File))
	for _, f := range zr.File {
		e := ListedEntry{Name: f.Name, Mode: f.Mode(), Method: f.Method}
		if f.Method == zip.Store || f.Method == zip.Deflate {
			rc, err := f.Open()
			require.NoError(t, err)
			e.Data, err = io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
		}
		out = append(out, e)
	}
	return out
}

// Names returns the names of entries.
func Names(entries []ListedEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// WriteTree creates files under root. Keys are slash-separated relative
// paths; a key ending in "/" creates an empty directory.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// ReadTree returns every regular file under root keyed by slash-separated
// relative path. Directories are keyed with a trailing slash and symlinks
// map to "-> target".
func ReadTree(t testing.TB, root string) map[string]string {
	t.Helper()

	out := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			out[rel] = "-> " + target
		case d.IsDir():
			out[rel+"/"] = ""
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			out[rel] = string(data)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

// SortedKeys returns the keys of m in order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PatternData returns n bytes of repeating, compressible content.
func PatternData(n int) []byte {
	return bytes.Repeat([]byte("zipper test data "), n/17+1)[:n]
}
