package locker

import "io/fs"

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object.
	// It resolves the path to an absolute path, stats it, and validates
	// it's a regular file or directory (not a symlink, device, etc.).
	Resolve(rawPath string) (*Path, error)

	// Stat returns fresh file info for a path.
	// Unlike path.Info() which returns cached info from when the path was resolved,
	// this always fetches current info from the filesystem.
	Stat(path *Path) (fs.FileInfo, error)

	// FindFiles returns the regular files under a directory path, sorted
	// lexicographically by absolute path. When recursive is true, files in
	// subdirectories are included.
	FindFiles(path *Path, recursive bool) ([]*Path, error)

	// IsIgnored reports whether a file matches the configured ignore rules.
	// rootPath anchors patterns that match on relative paths.
	IsIgnored(path *Path, rootPath string) (bool, error)

	// ReadFile reads the entire contents of a file.
	ReadFile(path *Path) ([]byte, error)

	// WriteFileAtomic replaces the contents of path with data.
	// The data is written to a temporary file in the same directory and
	// renamed over the original, so readers never observe a partial write.
	// The file keeps the given mode.
	WriteFileAtomic(path *Path, data []byte, mode fs.FileMode) error
}
