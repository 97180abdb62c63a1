package zipper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/meigma/zipper/fsutil"
	"github.com/meigma/zipper/internal/codec"
	"github.com/meigma/zipper/internal/sizing"
)

// Unzip extracts zip archives onto the filesystem.
//
// An Unzip runs one extraction at a time and may be reused once a run has
// returned.
type Unzip struct {
	cancelable
	cfg unzipConfig
	fs  *fsutil.FS
}

// NewUnzip creates an Unzip with the given options.
func NewUnzip(opts ...UnzipOption) *Unzip {
	cfg := unzipConfig{
		platform:               fsutil.HostPlatform(),
		symlinkAsFileOnWindows: true,
		maxSymlinkTarget:       DefaultMaxSymlinkTarget,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Unzip{
		cfg: cfg,
		fs:  fsutil.New(fsutil.WithPlatform(cfg.platform), fsutil.WithLogger(cfg.logger)),
	}
}

// Cancel aborts the extraction in progress, which then returns ErrCanceled.
// It does nothing if no extraction is running.
func (u *Unzip) Cancel() {
	u.cancel()
}

// log returns the logger, falling back to a discard logger if nil.
func (u *Unzip) log() *slog.Logger {
	if u.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return u.cfg.logger
}

// Extract extracts every entry of the zip file at archivePath into destDir.
//
// With UnzipWithOverwrite the destination is deleted first. Entries are read
// one at a time in archive order. Directory entries are created, symlink
// entries are restored as links (unless written as files on Windows) and all
// other entries are written as files with the permissions stored in the
// archive. The first failure stops extraction; entries already written are
// left in place.
//
// Canceling ctx has the same effect as calling Cancel.
func (u *Unzip) Extract(ctx context.Context, archivePath, destDir string) (err error) {
	if err := u.begin(); err != nil {
		return err
	}
	defer func() { err = u.end(err) }()
	stop := u.watch(ctx, u.Cancel)
	defer stop()

	u.log().Info("extracting archive", "archive", archivePath, "dest", destDir, "overwrite", u.cfg.overwrite)

	if u.cfg.overwrite {
		if err := u.fs.Rimraf(destDir); err != nil {
			return err
		}
	}
	if u.isCanceled() {
		return ErrCanceled
	}
	if err := u.fs.EnsureFolder(destDir); err != nil {
		return err
	}
	destReal, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return ioError("resolve", destDir, err)
	}

	r, err := codec.Open(archivePath)
	if err != nil {
		return ioError("open", archivePath, err)
	}
	x := &extraction{
		u:        u,
		reader:   r,
		dest:     destDir,
		destReal: destReal,
		buf:      make([]byte, 32*1024),
	}
	defer x.closeReader()
	// Cancel may have landed while the archive was opening.
	u.registerAbort(x.abort)
	defer u.clearAbort()
	if u.isCanceled() {
		return ErrCanceled
	}

	total := r.Count()
	if u.cfg.maxEntries > 0 && total > u.cfg.maxEntries {
		return fmt.Errorf("%w: %d entries, limit %d", ErrTooManyEntries, total, u.cfg.maxEntries)
	}
	if total == 0 {
		u.log().Info("archive is empty", "archive", archivePath)
		return nil
	}
	if err := x.run(total); err != nil {
		return err
	}
	u.log().Info("archive extracted", "archive", archivePath, "entries", total, "bytes", x.bytes)
	return nil
}

// symlinkAsFile reports whether symlink entries are written as regular files.
func (u *Unzip) symlinkAsFile() bool {
	return u.cfg.platform == fsutil.PlatformWindows && u.cfg.symlinkAsFileOnWindows
}

// extraction holds the state of a single Extract run.
type extraction struct {
	u        *Unzip
	reader   *codec.Reader
	dest     string
	destReal string
	buf      []byte
	bytes    uint64

	mu      sync.Mutex
	out     *os.File
	aborted bool
}

// abort closes the archive and the file being written so that in-flight
// I/O fails.
func (x *extraction) abort(error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.aborted = true
	_ = x.reader.Close() //nolint:errcheck // the run reports ErrCanceled
	if x.out != nil {
		_ = x.out.Close() //nolint:errcheck // the run reports ErrCanceled
	}
}

func (x *extraction) closeReader() {
	_ = x.reader.Close() //nolint:errcheck // read-only handle
}

// track records f as the file being written, closing it right away if the
// run was already aborted.
func (x *extraction) track(f *os.File) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.aborted {
		_ = f.Close() //nolint:errcheck // the run reports ErrCanceled
		return ErrCanceled
	}
	x.out = f
	return nil
}

// untrack forgets and closes the file being written.
func (x *extraction) untrack() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	f := x.out
	x.out = nil
	if f == nil || x.aborted {
		return nil
	}
	return f.Close()
}

// run pulls entries until the archive is exhausted.
func (x *extraction) run(total int) error {
	processed := 0
	for {
		if x.u.isCanceled() {
			return ErrCanceled
		}
		entry, err := x.reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, codec.ErrClosed) {
			return ErrCanceled
		}
		if err != nil {
			return err
		}

		name, err := x.handle(entry, total)
		if err != nil {
			return fmt.Errorf("extract %s: %w", entry.Name, err)
		}
		processed++
		x.reportProgress(name, processed, total)
	}
	if processed != total {
		return fmt.Errorf("archive ended after %d of %d entries", processed, total)
	}
	return nil
}

func (x *extraction) reportProgress(name string, done, total int) {
	if x.u.cfg.progress == nil {
		return
	}
	x.u.cfg.progress(ProgressEvent{
		Stage:      StageExtracting,
		Path:       name,
		BytesDone:  x.bytes,
		FilesDone:  done,
		FilesTotal: total,
	})
}

// handle validates, announces and writes a single entry. It returns the
// name the entry was extracted under.
func (x *extraction) handle(entry *codec.Entry, total int) (string, error) {
	if err := codec.ValidateName(entry.Name); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEntryName, err)
	}

	event := &EntryEvent{name: entry.Name, count: total}
	if x.u.cfg.onEntry != nil {
		x.u.cfg.onEntry(event)
	}
	if x.u.isCanceled() {
		return "", ErrCanceled
	}
	if event.skipped {
		x.u.log().Debug("skipped entry", "name", entry.Name)
		return entry.Name, nil
	}

	name := event.name
	if name != entry.Name {
		name = strings.ReplaceAll(name, `\`, "/")
		if err := codec.ValidateName(name); err != nil {
			return "", fmt.Errorf("%w: renamed to %v", ErrInvalidEntryName, err)
		}
	}

	target := filepath.Join(x.dest, filepath.FromSlash(name))
	if err := x.checkContained(target); err != nil {
		return "", err
	}

	if strings.HasSuffix(name, "/") {
		x.u.log().Debug("creating directory", "name", name)
		return name, x.u.fs.EnsureFolder(target)
	}
	if err := x.u.fs.EnsureFolder(filepath.Dir(target)); err != nil {
		return "", err
	}

	mode := codec.UnixMode(entry.ExternalAttrs)
	if codec.IsSymlinkMode(mode) && !x.u.symlinkAsFile() {
		x.u.log().Debug("creating symlink", "name", name)
		return name, x.writeSymlink(entry, target)
	}
	x.u.log().Debug("writing file", "name", name, "size", entry.Size)
	return name, x.writeFile(entry, target, codec.Perm(mode))
}

// checkContained rejects targets whose closest existing ancestor resolves,
// through symlinks, to a location outside the destination folder.
func (x *extraction) checkContained(target string) error {
	p := filepath.Dir(target)
	for {
		if _, err := os.Lstat(p); err == nil {
			break
		}
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return ioError("resolve", p, err)
	}
	rel, err := filepath.Rel(x.destReal, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s resolves outside the destination", ErrInvalidEntryName, target)
	}
	return nil
}

func (x *extraction) writeSymlink(entry *codec.Entry, target string) error {
	src, err := entry.Open()
	if err != nil {
		return ioError("open entry", entry.Name, err)
	}
	defer src.Close()

	link, err := sizing.ReadAllWithLimit(src, x.u.cfg.maxSymlinkTarget, ErrSymlinkTargetTooLong)
	if err != nil {
		if errors.Is(err, ErrSymlinkTargetTooLong) {
			return err
		}
		return ioError("read entry", entry.Name, err)
	}
	if info, err := os.Lstat(target); err == nil && !info.IsDir() {
		if err := os.Remove(target); err != nil {
			return ioError("unlink", target, err)
		}
	}
	if err := os.Symlink(string(link), target); err != nil {
		return ioError("symlink", target, err)
	}
	return nil
}

func (x *extraction) writeFile(entry *codec.Entry, target string, perm fs.FileMode) error {
	// Replace an existing link instead of writing through it.
	if info, err := os.Lstat(target); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return ioError("unlink", target, err)
		}
	}

	src, err := entry.Open()
	if err != nil {
		return ioError("open entry", entry.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return ioError("create", target, err)
	}
	if err := x.track(out); err != nil {
		return err
	}
	n, copyErr := codec.Copy(out, src, x.buf, x.u.cfg.onData)
	x.bytes += n
	closeErr := x.untrack()
	if copyErr != nil {
		return ioError("write", target, copyErr)
	}
	if closeErr != nil {
		return ioError("close", target, closeErr)
	}

	if err := os.Chmod(target, perm); err != nil {
		return ioError("chmod", target, err)
	}
	if x.u.cfg.preserveTimes && !entry.Modified.IsZero() {
		if err := os.Chtimes(target, entry.Modified, entry.Modified); err != nil {
			return ioError("chtimes", target, err)
		}
	}
	return nil
}
