package codec

import (
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// ErrClosed is returned by Next after the Reader has been closed.
var ErrClosed = errors.New("codec: archive closed")

// Entry describes one archive entry surfaced by Reader.Next.
type Entry struct {
	// Name is the entry name with backslashes converted to forward slashes.
	Name string

	// IsDir reports whether the raw name ends with a separator.
	IsDir bool

	// ExternalAttrs holds the raw external file attributes.
	ExternalAttrs uint32

	// Size is the uncompressed size declared by the entry header.
	Size uint64

	// Method is the zip compression method.
	Method uint16

	// Modified is the entry modification time.
	Modified time.Time

	file *zip.File
}

// Open returns a reader for the decompressed entry content.
func (e *Entry) Open() (io.ReadCloser, error) {
	return e.file.Open()
}

// Reader iterates over the entries of a zip file one at a time.
//
// Entries are only produced on demand by Next. A Reader cannot be rewound;
// open the archive again to restart iteration. Close may be called from
// another goroutine to abort an iteration in progress.
type Reader struct {
	mu     sync.Mutex
	rc     *zip.ReadCloser
	next   int
	closed bool
}

// Open opens the zip file at path for entry iteration.
func Open(path string) (*Reader, error) {
	rc, err := zip.OpenReader(path)
	if rc == nil {
		return nil, err
	}
	// A reader returned alongside an error only flags insecure names, which
	// Next's callers validate per entry.
	rc.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	rc.RegisterDecompressor(zstd.ZipMethodPKWare, zstd.ZipDecompressor())
	return &Reader{rc: rc}, nil
}

// Count returns the total number of entries in the archive.
func (r *Reader) Count() int {
	return len(r.rc.File)
}

// Next returns the next entry, io.EOF after the last one, or ErrClosed once
// the Reader is closed.
func (r *Reader) Next() (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.next >= len(r.rc.File) {
		return nil, io.EOF
	}
	f := r.rc.File[r.next]
	r.next++

	name := strings.ReplaceAll(f.Name, `\`, "/")
	return &Entry{
		Name:          name,
		IsDir:         strings.HasSuffix(name, "/"),
		ExternalAttrs: f.ExternalAttrs,
		Size:          f.UncompressedSize64,
		Method:        f.Method,
		Modified:      f.Modified,
		file:          f,
	}, nil
}

// Close releases the archive file. It is safe to call more than once.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rc.Close()
}
