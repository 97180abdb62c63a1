package zipper

import (
	"fmt"
	"strings"

	"github.com/meigma/zipper/fsutil"
	"github.com/meigma/zipper/internal/codec"
)

// normalizeMetadataPath converts a caller-supplied archive path to the form
// stored in the archive.
//
// It performs the following transformations:
//   - Converts backslashes to slashes on PlatformWindows: `a\b` → "a/b"
//   - Strips trailing slashes: "a/b/" → "a/b"
//   - Collapses consecutive slashes and "." segments: "a//./b" → "a/b"
//
// Paths that are absolute, carry a drive letter or contain ".." segments
// are rejected with ErrInvalidEntryName. The empty string, and paths made
// only of "." segments, normalize to "" (the archive root).
func normalizeMetadataPath(p string, platform fsutil.Platform) (string, error) {
	if platform == fsutil.PlatformWindows {
		p = strings.ReplaceAll(p, `\`, "/")
	}
	if p == "" {
		return "", nil
	}
	if err := codec.ValidateName(p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEntryName, err)
	}

	parts := strings.Split(p, "/")
	result := parts[:0] // reuse backing array
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/"), nil
}

// joinMetadataPath joins a folder prefix and a slash-separated relative path.
func joinMetadataPath(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}
