package zipper

// ProgressEvent represents a progress update during archive creation or extraction.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the entry or folder currently being processed, if applicable.
	Path string

	// BytesDone is the number of uncompressed bytes extracted so far.
	// It is only reported during extraction.
	BytesDone uint64

	// FilesDone is the number of entries completed.
	FilesDone int

	// FilesTotal is the total number of entries.
	// Zero indicates the total is unknown (e.g., during enumeration).
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for creation and extraction.
const (
	// StageEnumerating indicates a queued folder is being listed.
	StageEnumerating ProgressStage = iota

	// StageCompressing indicates entries are being written to the archive.
	StageCompressing

	// StageExtracting indicates entries are being extracted.
	StageExtracting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageEnumerating:
		return "enumerating"
	case StageCompressing:
		return "compressing"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// It is called synchronously from the goroutine running the operation.
type ProgressFunc func(ProgressEvent)
