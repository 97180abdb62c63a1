package codec

import (
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// OpenFunc opens the content of a streamed record. It is called during Flush.
type OpenFunc func() (io.ReadCloser, error)

// Header holds the metadata stored with a record.
type Header struct {
	Mode     fs.FileMode
	Modified time.Time
	Method   uint16
	Comment  string
}

type recordKind uint8

const (
	recordStream recordKind = iota
	recordBuffer
	recordDir
)

type record struct {
	kind   recordKind
	name   string
	header Header
	open   OpenFunc
	data   []byte
}

// Writer collects archive records and streams them into a zip container on
// Flush. Adding records performs no I/O; streamed sources are opened one at a
// time while flushing.
type Writer struct {
	records []record
	level   int
	comment string
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLevel sets the deflate compression level (flate.HuffmanOnly through
// flate.BestCompression). The default is flate.DefaultCompression.
func WithLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// WithComment sets the archive comment.
func WithComment(comment string) WriterOption {
	return func(w *Writer) {
		w.comment = comment
	}
}

// NewWriter creates an empty Writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{level: flate.DefaultCompression}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddReader appends a record whose content is read from open during Flush.
func (w *Writer) AddReader(name string, open OpenFunc, h Header) {
	w.records = append(w.records, record{kind: recordStream, name: name, header: h, open: open})
}

// AddBuffer appends a record holding data.
func (w *Writer) AddBuffer(name string, data []byte, h Header) {
	w.records = append(w.records, record{kind: recordBuffer, name: name, header: h, data: data})
}

// AddEmptyDir appends an empty directory record. A trailing slash is added to
// name if missing.
func (w *Writer) AddEmptyDir(name string, h Header) {
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	h.Method = zip.Store
	h.Mode = fs.ModeDir | h.Mode.Perm()
	w.records = append(w.records, record{kind: recordDir, name: name, header: h})
}

// Len returns the number of records added.
func (w *Writer) Len() int {
	return len(w.records)
}

// Names returns the record names in insertion order.
func (w *Writer) Names() []string {
	names := make([]string, len(w.records))
	for i, r := range w.records {
		names[i] = r.name
	}
	return names
}

// FlushHooks observe a Flush in progress.
type FlushHooks struct {
	// BeforeRecord is called before each record is written. A non-nil error
	// stops the flush and is returned.
	BeforeRecord func(name string, index, total int) error

	// OnData receives every chunk read from streamed records.
	OnData func([]byte)
}

// Flush writes every record, in insertion order, as a zip container to dst.
func (w *Writer) Flush(dst io.Writer, hooks FlushHooks) error {
	zw := zip.NewWriter(dst)
	level := w.level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor(zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true)))
	if w.comment != "" {
		if err := zw.SetComment(w.comment); err != nil {
			return err
		}
	}

	buf := make([]byte, 32*1024)
	for i, r := range w.records {
		if hooks.BeforeRecord != nil {
			if err := hooks.BeforeRecord(r.name, i, len(w.records)); err != nil {
				return err
			}
		}
		if err := w.writeRecord(zw, r, buf, hooks.OnData); err != nil {
			return fmt.Errorf("write %s: %w", r.name, err)
		}
	}
	return zw.Close()
}

func (w *Writer) writeRecord(zw *zip.Writer, r record, buf []byte, onData func([]byte)) error {
	fh := &zip.FileHeader{
		Name:     r.name,
		Method:   r.header.Method,
		Modified: r.header.Modified,
		Comment:  r.header.Comment,
	}
	fh.SetMode(r.header.Mode)
	if fh.Modified.IsZero() {
		fh.Modified = time.Now()
	}

	ew, err := zw.CreateHeader(fh)
	if err != nil {
		return err
	}

	switch r.kind {
	case recordDir:
		return nil
	case recordBuffer:
		_, err := ew.Write(r.data)
		return err
	default:
		src, err := r.open()
		if err != nil {
			return err
		}
		if _, err := Copy(ew, src, buf, onData); err != nil {
			_ = src.Close() //nolint:errcheck // the copy error takes priority
			return err
		}
		return src.Close()
	}
}
