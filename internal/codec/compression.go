package codec

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the method used for file entries.
type Compression uint8

const (
	// CompressionDeflate compresses entries with deflate (zip method 8).
	CompressionDeflate Compression = iota

	// CompressionStore stores entries uncompressed (zip method 0).
	CompressionStore

	// CompressionZstd compresses entries with zstd (zip method 93).
	CompressionZstd
)

// String returns the human-readable name of the compression method.
func (c Compression) String() string {
	switch c {
	case CompressionDeflate:
		return "deflate"
	case CompressionStore:
		return "store"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Method returns the zip method identifier for c.
func (c Compression) Method() uint16 {
	switch c {
	case CompressionStore:
		return zip.Store
	case CompressionZstd:
		return zstd.ZipMethodWinZip
	default:
		return zip.Deflate
	}
}

// SkipCompressionFunc returns true when a file should be stored uncompressed.
// It is called once per file and should be inexpensive.
type SkipCompressionFunc func(path string, info fs.FileInfo) bool

// DefaultSkipCompression returns a SkipCompressionFunc that skips small files
// and known already-compressed extensions.
func DefaultSkipCompression(minSize int64) SkipCompressionFunc {
	return func(path string, info fs.FileInfo) bool {
		if info != nil && minSize > 0 && info.Size() < minSize {
			return true
		}
		ext := strings.ToLower(filepath.Ext(path))
		_, ok := defaultSkipCompressionExts[ext]
		return ok
	}
}

// ShouldSkip checks if any predicate returns true for the given file.
func ShouldSkip(path string, info fs.FileInfo, predicates []SkipCompressionFunc) bool {
	for _, fn := range predicates {
		if fn == nil {
			continue
		}
		if fn(path, info) {
			return true
		}
	}
	return false
}

// SkipCompressedContent returns a SkipCompressionFunc that sniffs the start
// of each file and skips formats that are already compressed, whatever their
// extension. Files that cannot be read are compressed as usual.
func SkipCompressedContent() SkipCompressionFunc {
	return func(path string, info fs.FileInfo) bool {
		if info != nil && !info.Mode().IsRegular() {
			return false
		}
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return false
		}
		return isCompressedMIME(mtype)
	}
}

func isCompressedMIME(mtype *mimetype.MIME) bool {
	name := mtype.String()
	switch {
	case strings.HasPrefix(name, "video/"), strings.HasPrefix(name, "audio/"):
		return true
	case strings.HasPrefix(name, "image/"):
		return !mtype.Is("image/svg+xml") && !mtype.Is("image/bmp") && !mtype.Is("image/tiff")
	}
	for _, m := range compressedMIMEs {
		if mtype.Is(m) {
			return true
		}
	}
	return false
}

var compressedMIMEs = []string{
	"application/gzip",
	"application/zip",
	"application/zstd",
	"application/x-7z-compressed",
	"application/x-bzip2",
	"application/x-rar-compressed",
	"application/x-xz",
	"application/jar",
	"font/woff2",
}

var defaultSkipCompressionExts = map[string]struct{}{
	".7z":    {},
	".aac":   {},
	".avif":  {},
	".br":    {},
	".bz2":   {},
	".flac":  {},
	".gif":   {},
	".gz":    {},
	".heic":  {},
	".jar":   {},
	".jpeg":  {},
	".jpg":   {},
	".m4v":   {},
	".mkv":   {},
	".mov":   {},
	".mp3":   {},
	".mp4":   {},
	".ogg":   {},
	".png":   {},
	".rar":   {},
	".tgz":   {},
	".webm":  {},
	".webp":  {},
	".woff2": {},
	".xz":    {},
	".zip":   {},
	".zst":   {},
}
