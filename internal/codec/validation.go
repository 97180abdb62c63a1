package codec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrFileChanged is returned when a source file changes while it is archived.
var ErrFileChanged = errors.New("codec: file changed during archive creation")

// ValidateName reports why an entry name is unsafe to join onto a
// destination folder, or returns nil. Names must use forward slashes, must
// not be absolute or carry a drive letter, and must not contain ".."
// segments.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.New("empty name")
	case strings.Contains(name, `\`):
		return fmt.Errorf("invalid characters in name: %q", name)
	case strings.HasPrefix(name, "/"):
		return fmt.Errorf("absolute path: %q", name)
	case len(name) >= 2 && name[1] == ':' && isLetter(name[0]):
		return fmt.Errorf("absolute path: %q", name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return fmt.Errorf("invalid relative path: %q", name)
		}
	}
	return nil
}

func isLetter(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}

// CheckFileUnchanged verifies a file wasn't modified during write.
// In strict mode, it compares size, mtime, and permissions before/after.
func CheckFileUnchanged(f *os.File, path string, before fs.FileInfo, strict bool) error {
	if !strict {
		return nil
	}
	after, err := f.Stat()
	if err != nil {
		return err
	}
	if after.Size() != before.Size() || !after.ModTime().Equal(before.ModTime()) || after.Mode().Perm() != before.Mode().Perm() {
		return fmt.Errorf("%w: %s", ErrFileChanged, path)
	}
	return nil
}
