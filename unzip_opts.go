package zipper

import (
	"log/slog"

	"github.com/meigma/zipper/fsutil"
)

// DefaultMaxSymlinkTarget is the default limit on the length of a symlink
// entry's target.
const DefaultMaxSymlinkTarget = 4096

// UnzipOption configures an Unzip.
type UnzipOption func(*unzipConfig)

type unzipConfig struct {
	overwrite              bool
	onEntry                EntryHook
	onData                 DataHook
	progress               ProgressFunc
	symlinkAsFileOnWindows bool
	platform               fsutil.Platform
	preserveTimes          bool
	maxEntries             int
	maxSymlinkTarget       uint64
	logger                 *slog.Logger
}

// UnzipWithOverwrite recursively deletes the destination folder before
// extracting into it.
func UnzipWithOverwrite(overwrite bool) UnzipOption {
	return func(c *unzipConfig) {
		c.overwrite = overwrite
	}
}

// UnzipWithEntryHook sets a hook that is called before each entry is
// extracted and may rename or skip it.
func UnzipWithEntryHook(fn EntryHook) UnzipOption {
	return func(c *unzipConfig) {
		c.onEntry = fn
	}
}

// UnzipWithDataHook sets a hook that receives file content as it is written.
func UnzipWithDataHook(fn DataHook) UnzipOption {
	return func(c *unzipConfig) {
		c.onData = fn
	}
}

// UnzipWithProgress sets a callback that is invoked after each entry.
func UnzipWithProgress(fn ProgressFunc) UnzipOption {
	return func(c *unzipConfig) {
		c.progress = fn
	}
}

// UnzipWithSymlinkAsFileOnWindows controls whether symlink entries are
// written as regular files holding the link target on PlatformWindows.
// The default is true. It has no effect on other platforms, where symlinks
// are always restored as links.
func UnzipWithSymlinkAsFileOnWindows(enabled bool) UnzipOption {
	return func(c *unzipConfig) {
		c.symlinkAsFileOnWindows = enabled
	}
}

// UnzipWithPlatform sets the target platform. The default is the host.
func UnzipWithPlatform(p fsutil.Platform) UnzipOption {
	return func(c *unzipConfig) {
		c.platform = p
	}
}

// UnzipWithPreserveTimes sets extracted files' modification times from the archive.
// By default, times are not preserved (files use current time).
func UnzipWithPreserveTimes(preserve bool) UnzipOption {
	return func(c *unzipConfig) {
		c.preserveTimes = preserve
	}
}

// UnzipWithMaxEntries fails extraction with ErrTooManyEntries before anything
// is written when the archive holds more than n entries.
// Zero or negative means no limit.
func UnzipWithMaxEntries(n int) UnzipOption {
	return func(c *unzipConfig) {
		c.maxEntries = n
	}
}

// UnzipWithMaxSymlinkTarget limits the size of a symlink entry's target.
// Zero uses DefaultMaxSymlinkTarget.
func UnzipWithMaxSymlinkTarget(limit uint64) UnzipOption {
	return func(c *unzipConfig) {
		if limit == 0 {
			limit = DefaultMaxSymlinkTarget
		}
		c.maxSymlinkTarget = limit
	}
}

// UnzipWithLogger sets the logger for extraction.
// If not set, logging is disabled.
func UnzipWithLogger(logger *slog.Logger) UnzipOption {
	return func(c *unzipConfig) {
		c.logger = logger
	}
}
