package zipper

import (
	"io/fs"
	"log/slog"
	"time"

	"github.com/meigma/zipper/fsutil"
	"github.com/meigma/zipper/internal/codec"
)

// Compression identifies the method used for file entries.
type Compression = codec.Compression

// Compression methods for file entries.
const (
	CompressionDeflate = codec.CompressionDeflate
	CompressionStore   = codec.CompressionStore
	CompressionZstd    = codec.CompressionZstd
)

// SkipCompressionFunc returns true when a file should be stored uncompressed.
// It is called once per file and should be inexpensive.
type SkipCompressionFunc = codec.SkipCompressionFunc

// DefaultSkipCompression returns a SkipCompressionFunc that skips files
// smaller than minSize and known already-compressed extensions.
func DefaultSkipCompression(minSize int64) SkipCompressionFunc {
	return codec.DefaultSkipCompression(minSize)
}

// SkipCompressedContent returns a SkipCompressionFunc that detects
// already-compressed files (archives, images, audio, video) by their content.
// It reads the start of every file, so combine it with cheaper predicates
// where possible.
func SkipCompressedContent() SkipCompressionFunc {
	return codec.SkipCompressedContent()
}

// ChangeDetection controls how strictly file changes are detected while archiving.
type ChangeDetection uint8

const (
	ChangeDetectionNone ChangeDetection = iota
	ChangeDetectionStrict
)

// ZipOption configures a Zip.
type ZipOption func(*zipConfig)

type zipConfig struct {
	onData          DataHook
	followSymlinks  bool
	progress        ProgressFunc
	compression     Compression
	level           int
	levelSet        bool
	skipCompression []SkipCompressionFunc
	changeDetection ChangeDetection
	comment         string
	platform        fsutil.Platform
	logger          *slog.Logger
}

// ZipWithDataHook sets a hook that receives file content as it is read
// into the archive.
func ZipWithDataHook(fn DataHook) ZipOption {
	return func(c *zipConfig) {
		c.onData = fn
	}
}

// ZipWithFollowSymlinks archives the content symbolic links point to instead
// of the links themselves. Links to directories are not descended into and
// are skipped.
func ZipWithFollowSymlinks(follow bool) ZipOption {
	return func(c *zipConfig) {
		c.followSymlinks = follow
	}
}

// ZipWithProgress sets a callback for progress updates.
func ZipWithProgress(fn ProgressFunc) ZipOption {
	return func(c *zipConfig) {
		c.progress = fn
	}
}

// ZipWithCompression sets the method for file entries. The default is
// CompressionDeflate. Directory records are always stored.
func ZipWithCompression(comp Compression) ZipOption {
	return func(c *zipConfig) {
		c.compression = comp
	}
}

// ZipWithCompressionLevel sets the deflate level, from flate.HuffmanOnly
// (-2) to flate.BestCompression (9).
func ZipWithCompressionLevel(level int) ZipOption {
	return func(c *zipConfig) {
		c.level = level
		c.levelSet = true
	}
}

// ZipWithSkipCompression adds predicates that decide to store a file
// uncompressed.
func ZipWithSkipCompression(fns ...SkipCompressionFunc) ZipOption {
	return func(c *zipConfig) {
		c.skipCompression = append(c.skipCompression, fns...)
	}
}

// ZipWithChangeDetection controls whether the archive fails with
// ErrFileChanged when a file changes while it is read.
func ZipWithChangeDetection(cd ChangeDetection) ZipOption {
	return func(c *zipConfig) {
		c.changeDetection = cd
	}
}

// ZipWithComment sets the archive comment.
func ZipWithComment(comment string) ZipOption {
	return func(c *zipConfig) {
		c.comment = comment
	}
}

// ZipWithPlatform sets the platform used to interpret metadata paths and
// filesystem roots. The default is the host.
func ZipWithPlatform(p fsutil.Platform) ZipOption {
	return func(c *zipConfig) {
		c.platform = p
	}
}

// ZipWithLogger sets the logger for archive creation.
// If not set, logging is disabled.
func ZipWithLogger(logger *slog.Logger) ZipOption {
	return func(c *zipConfig) {
		c.logger = logger
	}
}

// EntryOption configures a single AddFile or AddFolder item.
type EntryOption func(*entryConfig)

type entryConfig struct {
	mode     fs.FileMode
	modeSet  bool
	modTime  time.Time
	compress bool
	comment  string
	exclude  []string
}

func newEntryConfig(opts []EntryOption) entryConfig {
	cfg := entryConfig{compress: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// EntryWithMode overrides the permission bits stored for file entries.
func EntryWithMode(mode fs.FileMode) EntryOption {
	return func(c *entryConfig) {
		c.mode = mode.Perm()
		c.modeSet = true
	}
}

// EntryWithModTime overrides the modification time stored for entries.
func EntryWithModTime(t time.Time) EntryOption {
	return func(c *entryConfig) {
		c.modTime = t
	}
}

// EntryWithCompress controls whether file entries are compressed.
// The default is true.
func EntryWithCompress(compress bool) EntryOption {
	return func(c *entryConfig) {
		c.compress = compress
	}
}

// EntryWithComment sets the comment stored with each entry.
func EntryWithComment(comment string) EntryOption {
	return func(c *entryConfig) {
		c.comment = comment
	}
}

// EntryWithExclude skips folder contents whose slash-separated path,
// relative to the folder, matches any of the doublestar patterns.
// It has no effect on AddFile.
func EntryWithExclude(patterns ...string) EntryOption {
	return func(c *entryConfig) {
		c.exclude = append(c.exclude, patterns...)
	}
}
