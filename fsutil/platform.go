package fsutil

import "runtime"

// Platform selects target-specific path semantics.
type Platform uint8

const (
	// PlatformPOSIX treats only a single separator as a root path.
	PlatformPOSIX Platform = iota

	// PlatformWindows additionally treats drive roots (D:, D:\, D:/) as root paths
	// and makes symlink materialization opt-in during extraction.
	PlatformWindows
)

// HostPlatform returns the Platform matching the running operating system.
func HostPlatform() Platform {
	if runtime.GOOS == "windows" {
		return PlatformWindows
	}
	return PlatformPOSIX
}

// String returns the string representation of the platform.
func (p Platform) String() string {
	switch p {
	case PlatformPOSIX:
		return "posix"
	case PlatformWindows:
		return "windows"
	default:
		return "unknown"
	}
}
