package zipper

// EntryEvent is passed to the entry hook before each archive entry is
// extracted. The hook may rename the destination with SetName or skip the
// entry entirely.
type EntryEvent struct {
	name    string
	count   int
	skipped bool
}

// Name returns the entry name, using forward slashes.
func (e *EntryEvent) Name() string { return e.name }

// SetName changes the path, relative to the destination folder, the entry is
// extracted to. The new name is validated like the original one.
func (e *EntryEvent) SetName(name string) { e.name = name }

// Count returns the total number of entries in the archive.
func (e *EntryEvent) Count() int { return e.count }

// Skip prevents the entry from being extracted.
func (e *EntryEvent) Skip() { e.skipped = true }

// Skipped reports whether Skip was called.
func (e *EntryEvent) Skipped() bool { return e.skipped }

// EntryHook inspects, renames or skips an entry before extraction.
type EntryHook func(*EntryEvent)

// DataHook receives each chunk of file content as it is streamed.
// The slice is only valid for the duration of the call.
type DataHook func(chunk []byte)
