package zipper

import (
	"archive/zip"
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/zipper/internal/testutil"
)

func TestArchive_FileAndFolder(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{
		"file.txt":       "single",
		"tree/a.txt":     "alpha",
		"tree/empty/":    "",
		"tree/sub/b.txt": "bravo",
	})
	dest := filepath.Join(t.TempDir(), "out.zip")

	z := NewZip()
	z.AddFile(filepath.Join(src, "file.txt"), "")
	z.AddFolder(filepath.Join(src, "tree"), "tree")
	require.NoError(t, z.Archive(context.Background(), dest))

	entries := testutil.ReadZip(t, dest)
	assert.Equal(t, []string{
		"file.txt",
		"tree/a.txt",
		"tree/empty/",
		"tree/sub/b.txt",
	}, testutil.Names(entries))
	assert.Equal(t, "single", string(entries[0].Data))
	assert.True(t, entries[2].Mode.IsDir())
	assert.Equal(t, "bravo", string(entries[3].Data))
}

func TestArchive_FolderMetadataPath(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"a.txt": "a", "d/b.txt": "b"})

	tests := []struct {
		name     string
		metadata string
		want     []string
	}{
		{"root", "", []string{"a.txt", "d/b.txt"}},
		{"prefix", "pkg", []string{"pkg/a.txt", "pkg/d/b.txt"}},
		{"normalized prefix", "pkg//./v1/", []string{"pkg/v1/a.txt", "pkg/v1/d/b.txt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dest := filepath.Join(t.TempDir(), "out.zip")
			z := NewZip()
			z.AddFolder(src, tt.metadata)
			require.NoError(t, z.Archive(context.Background(), dest))
			assert.Equal(t, tt.want, testutil.Names(testutil.ReadZip(t, dest)))
		})
	}
}

func TestArchive_EmptyFolder(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "out.zip")

	z := NewZip()
	z.AddFolder(src, "")
	z.AddFolder(src, "named")
	require.NoError(t, z.Archive(context.Background(), dest))

	entries := testutil.ReadZip(t, dest)
	assert.Equal(t, []string{"named/"}, testutil.Names(entries))
	assert.True(t, entries[0].Mode.IsDir())
}

func TestArchive_ReuseDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"a.txt": "a"})
	out := t.TempDir()

	z := NewZip()
	z.AddFile(filepath.Join(src, "a.txt"), "")
	first := filepath.Join(out, "first.zip")
	second := filepath.Join(out, "second.zip")
	require.NoError(t, z.Archive(context.Background(), first))
	require.NoError(t, z.Archive(context.Background(), second))

	assert.Equal(t, []string{"a.txt"}, testutil.Names(testutil.ReadZip(t, first)))
	assert.Equal(t, []string{"a.txt"}, testutil.Names(testutil.ReadZip(t, second)))

	z.Reset()
	third := filepath.Join(out, "third.zip")
	require.NoError(t, z.Archive(context.Background(), third))
	assert.Empty(t, testutil.ReadZip(t, third))
}

func TestArchive_EmptyDestination(t *testing.T) {
	t.Parallel()

	err := NewZip().Archive(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyDestination)
}

func TestArchive_InvalidMetadataPath(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"a.txt": "a"})

	tests := []struct {
		name   string
		add    func(z *Zip)
		errStr string
	}{
		{
			name: "file traversal",
			add:  func(z *Zip) { z.AddFile(filepath.Join(src, "a.txt"), "../a.txt") },
		},
		{
			name: "file absolute",
			add:  func(z *Zip) { z.AddFile(filepath.Join(src, "a.txt"), "/a.txt") },
		},
		{
			name: "folder traversal",
			add:  func(z *Zip) { z.AddFolder(src, "x/../../y") },
		},
		{
			name: "file only dots",
			add:  func(z *Zip) { z.AddFile(filepath.Join(src, "a.txt"), "./") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			z := NewZip()
			tt.add(z)
			err := z.Archive(context.Background(), filepath.Join(t.TempDir(), "out.zip"))
			require.ErrorIs(t, err, ErrInvalidEntryName)
		})
	}
}

func TestArchive_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	z := NewZip()
	z.AddFile(filepath.Join(dir, "missing.txt"), "")

	err := z.Archive(context.Background(), filepath.Join(dir, "out.zip"))
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestArchive_AddFileDirectoryFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	z := NewZip()
	z.AddFile(dir, "dir")

	err := z.Archive(context.Background(), filepath.Join(t.TempDir(), "out.zip"))
	require.ErrorIs(t, err, errNotRegular)
}

func TestArchive_CreatesParent(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"a.txt": "a"})
	dest := filepath.Join(t.TempDir(), "deep", "er", "out.zip")

	z := NewZip()
	z.AddFile(filepath.Join(src, "a.txt"), "renamed.txt")
	require.NoError(t, z.Archive(context.Background(), dest))
	assert.Equal(t, []string{"renamed.txt"}, testutil.Names(testutil.ReadZip(t, dest)))
}

func TestArchive_Symlinks(t *testing.T) {
	skipSymlinksOnWindows(t)
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"tree/target.txt": "content", "tree/dir/x.txt": "x"})
	require.NoError(t, os.Symlink("target.txt", filepath.Join(src, "tree", "link")))
	require.NoError(t, os.Symlink("dir", filepath.Join(src, "tree", "dirlink")))
	require.NoError(t, os.Symlink("tree/target.txt", filepath.Join(src, "top")))

	t.Run("stored as links", func(t *testing.T) {
		t.Parallel()
		dest := filepath.Join(t.TempDir(), "out.zip")
		z := NewZip()
		z.AddFile(filepath.Join(src, "top"), "")
		z.AddFolder(filepath.Join(src, "tree"), "")
		require.NoError(t, z.Archive(context.Background(), dest))

		byName := map[string]testutil.ListedEntry{}
		for _, e := range testutil.ReadZip(t, dest) {
			byName[e.Name] = e
		}
		require.Len(t, byName, 5)
		for name, target := range map[string]string{
			"top":     "tree/target.txt",
			"link":    "target.txt",
			"dirlink": "dir",
		} {
			e := byName[name]
			assert.NotZero(t, e.Mode&fs.ModeSymlink, name)
			assert.Equal(t, target, string(e.Data), name)
		}
	})

	t.Run("followed", func(t *testing.T) {
		t.Parallel()
		dest := filepath.Join(t.TempDir(), "out.zip")
		z := NewZip(ZipWithFollowSymlinks(true))
		z.AddFile(filepath.Join(src, "top"), "")
		z.AddFolder(filepath.Join(src, "tree"), "")
		require.NoError(t, z.Archive(context.Background(), dest))

		entries := testutil.ReadZip(t, dest)
		// Links to directories are skipped when following.
		assert.Equal(t, []string{"top", "dir/x.txt", "link", "target.txt"}, testutil.Names(entries))
		for _, e := range entries {
			assert.Zero(t, e.Mode&fs.ModeSymlink, e.Name)
		}
		assert.Equal(t, "content", string(entries[0].Data))
		assert.Equal(t, "content", string(entries[2].Data))
	})
}

func TestArchive_Exclude(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{
		"main.go":               "package main",
		"debug.log":             "noise",
		"sub/trace.log":         "noise",
		"node_modules/pkg/a.js": "js",
		"sub/node_modules/b.js": "js",
		"sub/keep.txt":          "keep",
	})
	dest := filepath.Join(t.TempDir(), "out.zip")

	z := NewZip()
	z.AddFolder(src, "", EntryWithExclude("**/*.log", "**/node_modules"))
	require.NoError(t, z.Archive(context.Background(), dest))

	assert.Equal(t, []string{"main.go", "sub/keep.txt"}, testutil.Names(testutil.ReadZip(t, dest)))
}

func TestArchive_BadExcludePattern(t *testing.T) {
	t.Parallel()

	z := NewZip()
	z.AddFolder(t.TempDir(), "", EntryWithExclude("[unclosed"))
	err := z.Archive(context.Background(), filepath.Join(t.TempDir(), "out.zip"))
	require.Error(t, err)
}

func TestArchive_Compression(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	data := string(testutil.PatternData(8 * 1024))
	testutil.WriteTree(t, src, map[string]string{
		"text.txt":  data,
		"image.png": data,
		"tiny.txt":  "x",
	})

	tests := []struct {
		name  string
		opts  []ZipOption
		entry []EntryOption
		want  map[string]uint16
	}{
		{
			name: "default deflate",
			want: map[string]uint16{"image.png": zip.Deflate, "text.txt": zip.Deflate, "tiny.txt": zip.Deflate},
		},
		{
			name: "store",
			opts: []ZipOption{ZipWithCompression(CompressionStore)},
			want: map[string]uint16{"image.png": zip.Store, "text.txt": zip.Store, "tiny.txt": zip.Store},
		},
		{
			name: "zstd",
			opts: []ZipOption{ZipWithCompression(CompressionZstd)},
			want: map[string]uint16{"image.png": 93, "text.txt": 93, "tiny.txt": 93},
		},
		{
			name: "skip compression",
			opts: []ZipOption{ZipWithSkipCompression(DefaultSkipCompression(16))},
			want: map[string]uint16{"image.png": zip.Store, "text.txt": zip.Deflate, "tiny.txt": zip.Store},
		},
		{
			name:  "entry without compression",
			entry: []EntryOption{EntryWithCompress(false)},
			want:  map[string]uint16{"image.png": zip.Store, "text.txt": zip.Store, "tiny.txt": zip.Store},
		},
		{
			name: "compression level",
			opts: []ZipOption{ZipWithCompressionLevel(9)},
			want: map[string]uint16{"image.png": zip.Deflate, "text.txt": zip.Deflate, "tiny.txt": zip.Deflate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dest := filepath.Join(t.TempDir(), "out.zip")
			z := NewZip(tt.opts...)
			z.AddFolder(src, "", tt.entry...)
			require.NoError(t, z.Archive(context.Background(), dest))

			got := map[string]uint16{}
			for _, e := range testutil.ReadZip(t, dest) {
				got[e.Name] = e.Method
				if e.Data != nil && e.Name != "tiny.txt" {
					assert.Equal(t, data, string(e.Data), e.Name)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArchive_EntryOptions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"a.sh": "echo"})
	dest := filepath.Join(t.TempDir(), "out.zip")
	mtime := time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)

	z := NewZip(ZipWithComment("release build"))
	z.AddFile(filepath.Join(src, "a.sh"), "bin/a.sh",
		EntryWithMode(0o755),
		EntryWithModTime(mtime),
		EntryWithComment("entrypoint"),
	)
	require.NoError(t, z.Archive(context.Background(), dest))

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()

	assert.Equal(t, "release build", zr.Comment)
	require.Len(t, zr.File, 1)
	f := zr.File[0]
	assert.Equal(t, "bin/a.sh", f.Name)
	assert.Equal(t, fs.FileMode(0o755), f.Mode())
	assert.Equal(t, "entrypoint", f.Comment)
	assert.True(t, f.Modified.Equal(mtime), "got %v", f.Modified)
}

func TestArchive_DataHookAndProgress(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	content := testutil.PatternData(64 * 1024)
	testutil.WriteTree(t, src, map[string]string{"a.bin": string(content), "b/": ""})
	dest := filepath.Join(t.TempDir(), "out.zip")

	var streamed []byte
	var stages []ProgressStage
	var paths []string
	z := NewZip(
		ZipWithDataHook(func(chunk []byte) { streamed = append(streamed, chunk...) }),
		ZipWithProgress(func(e ProgressEvent) {
			stages = append(stages, e.Stage)
			paths = append(paths, e.Path)
		}),
	)
	z.AddFolder(src, "")
	require.NoError(t, z.Archive(context.Background(), dest))

	assert.Equal(t, content, streamed)
	assert.Equal(t, []ProgressStage{StageEnumerating, StageCompressing, StageCompressing}, stages)
	assert.Equal(t, []string{src, "a.bin", "b/"}, paths)
}

func TestArchive_ContextCanceled(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"a.txt": "a"})
	dest := filepath.Join(t.TempDir(), "out.zip")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	z := NewZip()
	z.AddFolder(src, "")
	err := z.Archive(ctx, dest)
	require.ErrorIs(t, err, ErrCanceled)
	assert.NoFileExists(t, dest)
}

func TestArchive_CancelWhileFlushing(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{
		"1.bin": string(testutil.PatternData(256 * 1024)),
		"2.bin": "second",
	})
	dest := filepath.Join(t.TempDir(), "out.zip")

	var z *Zip
	var paths []string
	canceled := false
	z = NewZip(
		ZipWithDataHook(func([]byte) {
			if !canceled {
				canceled = true
				z.Cancel()
			}
		}),
		ZipWithProgress(func(e ProgressEvent) {
			if e.Stage == StageCompressing {
				paths = append(paths, e.Path)
			}
		}),
	)
	z.AddFolder(src, "")

	err := z.Archive(context.Background(), dest)
	require.ErrorIs(t, err, ErrCanceled)
	assert.Equal(t, []string{"1.bin"}, paths)

	// The instance is usable again after cancellation.
	require.NoError(t, z.Archive(context.Background(), filepath.Join(t.TempDir(), "ok.zip")))
}

func TestArchive_ChangeDetection(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	path := filepath.Join(src, "a.txt")
	testutil.WriteTree(t, src, map[string]string{"a.txt": string(testutil.PatternData(1024))})
	touched := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mode    ChangeDetection
		wantErr bool
	}{
		{"none", ChangeDetectionNone, false},
		{"strict", ChangeDetectionStrict, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.Chtimes(path, time.Now(), time.Now()))
			z := NewZip(
				ZipWithChangeDetection(tt.mode),
				ZipWithDataHook(func([]byte) { _ = os.Chtimes(path, touched, touched) }),
			)
			z.AddFile(path, "")
			err := z.Archive(context.Background(), filepath.Join(t.TempDir(), "out.zip"))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrFileChanged)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestArchive_SkipCompressedContent(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write(testutil.PatternData(4096))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(src, "blob"), gz.Bytes(), 0o644))
	testutil.WriteTree(t, src, map[string]string{"text": string(testutil.PatternData(4096))})
	dest := filepath.Join(t.TempDir(), "out.zip")

	z := NewZip(ZipWithSkipCompression(SkipCompressedContent()))
	z.AddFolder(src, "")
	require.NoError(t, z.Archive(context.Background(), dest))

	got := map[string]uint16{}
	for _, e := range testutil.ReadZip(t, dest) {
		got[e.Name] = e.Method
	}
	assert.Equal(t, map[string]uint16{"blob": zip.Store, "text": zip.Deflate}, got)
}

func TestArchive_SymlinkedFolder(t *testing.T) {
	skipSymlinksOnWindows(t)
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"real/a.txt": "a", "real/sub/b.txt": "b"})
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), link))
	dest := filepath.Join(t.TempDir(), "out.zip")

	z := NewZip()
	z.AddFolder(link, "")
	z.AddFolder(link, "named")
	require.NoError(t, z.Archive(context.Background(), dest))

	entries := testutil.ReadZip(t, dest)
	assert.Equal(t, []string{"a.txt", "sub/b.txt", "named/a.txt", "named/sub/b.txt"}, testutil.Names(entries))
	assert.Equal(t, "b", string(entries[1].Data))
}

func TestArchive_CancelFromAnotherGoroutine(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{
		"1.bin": string(testutil.PatternData(256 * 1024)),
		"2.bin": "second",
	})
	dest := filepath.Join(t.TempDir(), "out.zip")

	started := make(chan struct{})
	resume := make(chan struct{})
	var once sync.Once
	z := NewZip(ZipWithDataHook(func([]byte) {
		once.Do(func() {
			close(started)
			<-resume
		})
	}))
	z.AddFolder(src, "")

	errc := make(chan error, 1)
	go func() { errc <- z.Archive(context.Background(), dest) }()

	<-started
	z.Cancel()
	close(resume)
	require.ErrorIs(t, <-errc, ErrCanceled)
}
