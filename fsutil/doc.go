// Package fsutil provides the recursive filesystem primitives used by the
// zip engines: recursive listing, idempotent directory creation, recursive
// deletion guarded against filesystem roots, and an existence probe.
//
// Platform-dependent behavior (root detection) is driven by an explicit
// [Platform] value injected through [WithPlatform] rather than by the host
// process, so Windows semantics can be exercised on any OS:
//
//	fsys := fsutil.New(fsutil.WithPlatform(fsutil.PlatformWindows))
//	fsys.IsRootPath(`D:\`) // true
//
// The package-level functions use the host platform.
package fsutil
