// Package zipper packages files and directory trees into zip archives and
// extracts zip archives onto a filesystem.
//
// Both engines are cancelable: [Unzip.Cancel] and [Zip.Cancel] may be called
// from another goroutine while [Unzip.Extract] or [Zip.Archive] runs, and
// canceling the context passed to either has the same effect. A canceled run
// returns [ErrCanceled]. Partial results are left on disk.
//
// Symbolic links are stored as link entries and restored as links by default.
// Entry names that would escape the destination folder are rejected with
// [ErrInvalidEntryName] before anything is written for them.
//
// # Extracting
//
//	u := zipper.NewUnzip(
//	    zipper.UnzipWithOverwrite(true),
//	    zipper.UnzipWithEntryHook(func(e *zipper.EntryEvent) {
//	        if strings.HasPrefix(e.Name(), "__MACOSX/") {
//	            e.Skip()
//	        }
//	    }),
//	)
//	err := u.Extract(ctx, "release.zip", "./out")
//
// # Creating
//
//	z := zipper.NewZip(zipper.ZipWithCompression(zipper.CompressionZstd))
//	z.AddFile("README.md", "")
//	z.AddFolder("./src", "src", zipper.EntryWithExclude("**/*.tmp"))
//	err := z.Archive(ctx, "release.zip")
//
// The recursive filesystem helpers used by the engines live in the fsutil
// subpackage.
package zipper
