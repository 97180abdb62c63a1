package codec

import (
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/meigma/zipper/internal/platform"
)

// FileSource returns an OpenFunc that opens path for streaming into the
// archive. When follow is false a symbolic link at path is refused with
// platform.ErrSymlink. When strict is true, Close fails with ErrFileChanged if
// the file's size, mtime or permissions changed while it was read.
func FileSource(path string, follow, strict bool) OpenFunc {
	return func() (io.ReadCloser, error) {
		var (
			f   *os.File
			err error
		)
		if follow {
			f, err = os.Open(path)
		} else {
			f, err = platform.OpenFileNoFollow(path)
		}
		if err != nil {
			return nil, err
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close() //nolint:errcheck // best-effort cleanup
			return nil, err
		}
		if !info.Mode().IsRegular() {
			_ = f.Close() //nolint:errcheck // best-effort cleanup
			return nil, fmt.Errorf("not a regular file: %s", path)
		}
		return &sourceFile{File: f, path: path, info: info, strict: strict}, nil
	}
}

type sourceFile struct {
	*os.File
	path   string
	info   fs.FileInfo
	strict bool
}

// Close verifies the file is unchanged (in strict mode) and closes it.
func (s *sourceFile) Close() error {
	checkErr := CheckFileUnchanged(s.File, s.path, s.info, s.strict)
	closeErr := s.File.Close()
	if checkErr != nil {
		return checkErr
	}
	return closeErr
}
