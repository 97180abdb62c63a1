package fsutil

// IsRootPath reports whether path denotes a filesystem root on platform p.
//
// "/" and `\` are roots on every platform. On PlatformWindows a single drive
// letter followed by ":" and at most one trailing separator is also a root.
func IsRootPath(path string, p Platform) bool {
	if path == "" {
		return false
	}
	if path == `\` || path == "/" {
		return true
	}
	if p != PlatformWindows {
		return false
	}
	if len(path) < 2 || len(path) > 3 {
		return false
	}
	if !isDriveLetter(path[0]) || path[1] != ':' {
		return false
	}
	return len(path) == 2 || path[2] == '\\' || path[2] == '/'
}

func isDriveLetter(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}
