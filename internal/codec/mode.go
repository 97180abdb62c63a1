package codec

import "io/fs"

// Unix file type bits stored in the high 16 bits of the external attributes.
const (
	sIFMT  = 0o170000
	sIFLNK = 0o120000
	sIFDIR = 0o040000

	sIRWXU = 0o700
	sIRWXG = 0o070
	sIRWXO = 0o007

	// defaultUnixMode is a regular file with 0644 permissions, used when an
	// entry carries no unix attributes.
	defaultUnixMode = 0o100644
)

// UnixMode decodes the unix mode stored in zip external attributes.
// Only the file type and the rwx bits of owner, group and other are kept.
func UnixMode(externalAttrs uint32) uint32 {
	attr := externalAttrs >> 16
	if attr == 0 {
		attr = defaultUnixMode
	}
	return attr&sIFMT | attr&sIRWXU | attr&sIRWXG | attr&sIRWXO
}

// IsSymlinkMode reports whether a unix mode denotes a symbolic link.
func IsSymlinkMode(mode uint32) bool {
	return mode&sIFMT == sIFLNK
}

// Perm returns the permission bits of a unix mode as an fs.FileMode.
func Perm(mode uint32) fs.FileMode {
	return fs.FileMode(mode & (sIRWXU | sIRWXG | sIRWXO))
}
