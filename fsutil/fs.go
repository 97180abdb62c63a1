package fsutil

import (
	"log/slog"
)

// FS exposes the filesystem primitives bound to a target Platform.
// The zero value is not usable; construct with New.
type FS struct {
	platform Platform
	logger   *slog.Logger
	mkdir    func(string) error
}

// Option configures an FS.
type Option func(*FS)

// WithPlatform sets the target platform used for root detection.
// The default is HostPlatform().
func WithPlatform(p Platform) Option {
	return func(f *FS) {
		f.platform = p
	}
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FS) {
		f.logger = logger
	}
}

// New creates an FS for the host platform unless overridden by opts.
func New(opts ...Option) *FS {
	f := &FS{platform: HostPlatform(), mkdir: mkdir}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Platform returns the configured target platform.
func (f *FS) Platform() Platform {
	return f.platform
}

// IsRootPath reports whether path is a root on the configured platform.
func (f *FS) IsRootPath(path string) bool {
	return IsRootPath(path, f.platform)
}

// log returns the logger, falling back to a discard logger if nil.
func (f *FS) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.logger
}

var host = New()

// Readdirp lists folder recursively using the host platform.
func Readdirp(folder string) ([]Entry, error) {
	return host.Readdirp(folder)
}

// EnsureFolder creates folder and any missing parents using the host platform.
func EnsureFolder(folder string) error {
	return host.EnsureFolder(folder)
}

// Rimraf recursively deletes target using the host platform.
func Rimraf(target string) error {
	return host.Rimraf(target)
}
