package zipper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/meigma/zipper/fsutil"
	"github.com/meigma/zipper/internal/codec"
)

// errNotRegular is returned when AddFile names something other than a
// regular file or symbolic link.
var errNotRegular = errors.New("not a regular file")

type pendingFile struct {
	path         string
	metadataPath string
	cfg          entryConfig
}

type pendingFolder struct {
	path         string
	metadataPath string
	cfg          entryConfig
}

// Zip builds zip archives from queued files and folders.
//
// Items are queued with AddFile and AddFolder and written by Archive. The
// queue is kept across runs, so calling Archive again writes the same items
// to a fresh archive; use Reset to start over. A Zip runs one Archive at a
// time.
type Zip struct {
	cancelable
	cfg zipConfig
	fs  *fsutil.FS

	files   []pendingFile
	folders []pendingFolder
}

// NewZip creates a Zip with the given options.
func NewZip(opts ...ZipOption) *Zip {
	cfg := zipConfig{
		compression: CompressionDeflate,
		platform:    fsutil.HostPlatform(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Zip{
		cfg: cfg,
		fs:  fsutil.New(fsutil.WithPlatform(cfg.platform), fsutil.WithLogger(cfg.logger)),
	}
}

// AddFile queues the file at src. metadataPath is the name stored in the
// archive and defaults to the base name of src. No I/O happens until Archive.
func (z *Zip) AddFile(src, metadataPath string, opts ...EntryOption) {
	if metadataPath == "" {
		metadataPath = filepath.Base(src)
	}
	z.files = append(z.files, pendingFile{path: src, metadataPath: metadataPath, cfg: newEntryConfig(opts)})
}

// AddFolder queues the contents of the folder at src. Entries are stored
// under metadataPath, or at the archive root when it is empty. No I/O
// happens until Archive.
func (z *Zip) AddFolder(src, metadataPath string, opts ...EntryOption) {
	z.folders = append(z.folders, pendingFolder{path: src, metadataPath: metadataPath, cfg: newEntryConfig(opts)})
}

// Reset clears the queue.
func (z *Zip) Reset() {
	z.files = nil
	z.folders = nil
}

// Cancel aborts the Archive in progress, which then returns ErrCanceled.
// It does nothing if no Archive is running.
func (z *Zip) Cancel() {
	z.cancel()
}

// log returns the logger, falling back to a discard logger if nil.
func (z *Zip) log() *slog.Logger {
	if z.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return z.cfg.logger
}

// Archive writes every queued item into a new zip file at dest.
//
// Files are written first, in the order they were added, followed by the
// contents of each folder. Symbolic links are stored as links unless
// ZipWithFollowSymlinks is set. The parent of dest is created if needed. A
// failed or canceled run may leave a partial file at dest.
//
// Canceling ctx has the same effect as calling Cancel.
func (z *Zip) Archive(ctx context.Context, dest string) (err error) {
	if dest == "" {
		return ErrEmptyDestination
	}
	if err := z.begin(); err != nil {
		return err
	}
	defer func() { err = z.end(err) }()
	stop := z.watch(ctx, z.Cancel)
	defer stop()

	z.log().Info("creating archive", "dest", dest, "files", len(z.files), "folders", len(z.folders))

	var wopts []codec.WriterOption
	if z.cfg.levelSet {
		wopts = append(wopts, codec.WithLevel(z.cfg.level))
	}
	if z.cfg.comment != "" {
		wopts = append(wopts, codec.WithComment(z.cfg.comment))
	}
	w := codec.NewWriter(wopts...)

	for _, f := range z.files {
		if z.isCanceled() {
			return ErrCanceled
		}
		if err := z.addFile(w, f); err != nil {
			return err
		}
	}
	for _, f := range z.folders {
		if z.isCanceled() {
			return ErrCanceled
		}
		if err := z.addFolder(w, f); err != nil {
			return err
		}
	}

	if err := z.fs.EnsureFolder(filepath.Dir(dest)); err != nil {
		return err
	}
	if z.isCanceled() {
		return ErrCanceled
	}
	if err := z.flush(w, dest); err != nil {
		return err
	}
	z.log().Info("archive created", "dest", dest, "entries", w.Len())
	return nil
}

// flush creates dest and streams the records of w into it.
func (z *Zip) flush(w *codec.Writer, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return ioError("create", dest, err)
	}
	var closeOnce sync.Once
	var closeErr error
	closeOut := func() {
		closeOnce.Do(func() { closeErr = out.Close() })
	}
	z.registerAbort(func(error) { closeOut() })
	defer z.clearAbort()

	total := w.Len()
	hooks := codec.FlushHooks{
		BeforeRecord: func(name string, index, _ int) error {
			if z.isCanceled() {
				return ErrCanceled
			}
			z.log().Debug("writing entry", "name", name)
			if z.cfg.progress != nil {
				z.cfg.progress(ProgressEvent{
					Stage:      StageCompressing,
					Path:       name,
					FilesDone:  index,
					FilesTotal: total,
				})
			}
			return nil
		},
		OnData: z.cfg.onData,
	}
	if err := w.Flush(out, hooks); err != nil {
		closeOut()
		if errors.Is(err, ErrCanceled) || errors.Is(err, codec.ErrFileChanged) {
			return err
		}
		return ioError("write", dest, err)
	}
	closeOut()
	if closeErr != nil {
		return ioError("close", dest, closeErr)
	}
	return nil
}

func (z *Zip) addFile(w *codec.Writer, f pendingFile) error {
	name, err := normalizeMetadataPath(f.metadataPath, z.cfg.platform)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: empty metadata path for %s", ErrInvalidEntryName, f.path)
	}

	info, err := os.Lstat(f.path)
	if err != nil {
		return ioError("lstat", f.path, err)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		if !z.cfg.followSymlinks {
			return z.addSymlink(w, f.path, name, info, f.cfg)
		}
		if info, err = os.Stat(f.path); err != nil {
			return ioError("stat", f.path, err)
		}
	}
	if !info.Mode().IsRegular() {
		return ioError("add", f.path, errNotRegular)
	}
	z.addStream(w, f.path, name, info, f.cfg)
	return nil
}

func (z *Zip) addFolder(w *codec.Writer, f pendingFolder) error {
	prefix, err := normalizeMetadataPath(f.metadataPath, z.cfg.platform)
	if err != nil {
		return err
	}
	for _, pattern := range f.cfg.exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
	}

	if z.cfg.progress != nil {
		z.cfg.progress(ProgressEvent{Stage: StageEnumerating, Path: f.path})
	}
	root := filepath.Clean(f.path)
	entries, err := z.fs.Readdirp(root)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	if len(entries) == 0 {
		if prefix != "" {
			w.AddEmptyDir(prefix, z.dirHeader(f.path, f.cfg))
		}
		return nil
	}

	for _, e := range entries {
		if z.isCanceled() {
			return ErrCanceled
		}
		rel, err := filepath.Rel(root, e.Path)
		if err != nil {
			return ioError("rel", e.Path, err)
		}
		rel = filepath.ToSlash(rel)
		if excluded(rel, f.cfg.exclude) {
			z.log().Debug("excluded path", "path", e.Path)
			continue
		}
		name := joinMetadataPath(prefix, rel)

		switch e.Type {
		case fsutil.EntryDir:
			w.AddEmptyDir(name, codec.Header{
				Mode:     e.Mode.Perm(),
				Modified: z.modTime(e.ModTime, f.cfg),
				Comment:  f.cfg.comment,
			})
		case fsutil.EntrySymlink:
			if err := z.addFolderSymlink(w, e, name, f.cfg); err != nil {
				return err
			}
		default:
			if !e.Mode.IsRegular() {
				z.log().Debug("skipping non-regular file", "path", e.Path, "mode", e.Mode.String())
				continue
			}
			info, err := os.Lstat(e.Path)
			if err != nil {
				return ioError("lstat", e.Path, err)
			}
			z.addStream(w, e.Path, name, info, f.cfg)
		}
	}
	return nil
}

func (z *Zip) addFolderSymlink(w *codec.Writer, e fsutil.Entry, name string, cfg entryConfig) error {
	info, err := os.Lstat(e.Path)
	if err != nil {
		return ioError("lstat", e.Path, err)
	}
	if !z.cfg.followSymlinks {
		return z.addSymlink(w, e.Path, name, info, cfg)
	}
	target, err := os.Stat(e.Path)
	if err != nil {
		return ioError("stat", e.Path, err)
	}
	if !target.Mode().IsRegular() {
		z.log().Debug("skipping link to non-regular file", "path", e.Path, "mode", target.Mode().String())
		return nil
	}
	z.addStream(w, e.Path, name, target, cfg)
	return nil
}

// addSymlink stores the link target of path as the entry content.
func (z *Zip) addSymlink(w *codec.Writer, path, name string, info fs.FileInfo, cfg entryConfig) error {
	target, err := os.Readlink(path)
	if err != nil {
		return ioError("readlink", path, err)
	}
	z.log().Debug("adding symlink", "name", name, "target", target)
	w.AddBuffer(name, []byte(target), codec.Header{
		Mode:     fs.ModeSymlink | info.Mode().Perm(),
		Modified: z.modTime(info.ModTime(), cfg),
		Method:   CompressionStore.Method(),
		Comment:  cfg.comment,
	})
	return nil
}

// addStream queues the content of path, read during flush.
func (z *Zip) addStream(w *codec.Writer, path, name string, info fs.FileInfo, cfg entryConfig) {
	mode := info.Mode().Perm()
	if cfg.modeSet {
		mode = cfg.mode
	}
	strict := z.cfg.changeDetection == ChangeDetectionStrict
	w.AddReader(name, codec.FileSource(path, z.cfg.followSymlinks, strict), codec.Header{
		Mode:     mode,
		Modified: z.modTime(info.ModTime(), cfg),
		Method:   z.method(path, info, cfg),
		Comment:  cfg.comment,
	})
}

func (z *Zip) dirHeader(path string, cfg entryConfig) codec.Header {
	h := codec.Header{Mode: 0o755, Comment: cfg.comment}
	if info, err := os.Stat(path); err == nil {
		h.Mode = info.Mode().Perm()
		h.Modified = info.ModTime()
	}
	h.Modified = z.modTime(h.Modified, cfg)
	return h
}

func (z *Zip) modTime(t time.Time, cfg entryConfig) time.Time {
	if !cfg.modTime.IsZero() {
		return cfg.modTime
	}
	return t
}

// method picks the zip method for a file entry.
func (z *Zip) method(path string, info fs.FileInfo, cfg entryConfig) uint16 {
	if !cfg.compress || codec.ShouldSkip(path, info, z.cfg.skipCompression) {
		return CompressionStore.Method()
	}
	return z.cfg.compression.Method()
}

// excluded reports whether rel, or any folder containing it, matches one of
// the patterns.
func excluded(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	for p := rel; ; {
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, p); ok {
				return true
			}
		}
		i := strings.LastIndexByte(p, '/')
		if i < 0 {
			return false
		}
		p = p[:i]
	}
}
