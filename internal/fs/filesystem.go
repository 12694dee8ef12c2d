package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"datalocker/internal/locker"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher

	// Parsed per-root ignore files, keyed by root path. Access is not
	// synchronized; operations run one at a time.
	rootIgnores map[string]*IgnoreMatcher
}

// NewOSFilesystemManager creates a new filesystem manager that operates on
// the real filesystem. patterns are the configured ignore patterns, applied
// in addition to any per-root ignore file.
func NewOSFilesystemManager(patterns []string) *OSFilesystemManager {
	all := append([]string{}, defaultIgnorePatterns...)
	all = append(all, patterns...)
	return &OSFilesystemManager{
		ignore:      NewIgnoreMatcher(all),
		rootIgnores: make(map[string]*IgnoreMatcher),
	}
}

// Resolve validates a raw path and returns a Path object.
// A path that does not exist, or that names anything other than a regular
// file or directory, fails with ErrInvalidPath.
func (m *OSFilesystemManager) Resolve(rawPath string) (*locker.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	// Lstat so symlinks show up as symlinks instead of their target.
	info, err := os.Lstat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", locker.ErrInvalidPath, absPath)
		}
		return nil, fmt.Errorf("stat path: %w", err)
	}

	if !info.IsDir() && !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s (mode %s)", locker.ErrInvalidPath, absPath, info.Mode().Type())
	}

	return locker.NewPath(absPath, info.IsDir(), info), nil
}

// Stat returns fresh file info for a path.
func (m *OSFilesystemManager) Stat(path *locker.Path) (fs.FileInfo, error) {
	return os.Stat(path.String())
}

// FindFiles discovers regular files under the given directory path, sorted
// lexicographically by absolute path.
func (m *OSFilesystemManager) FindFiles(path *locker.Path, recursive bool) ([]*locker.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}

	var paths []*locker.Path

	if recursive {
		err := filepath.WalkDir(path.String(), func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}
			paths = append(paths, locker.NewPath(p, false, info))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking directory: %w", err)
		}
	} else {
		entries, err := os.ReadDir(path.String())
		if err != nil {
			return nil, fmt.Errorf("reading directory: %w", err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
			}
			fullPath := filepath.Join(path.String(), entry.Name())
			paths = append(paths, locker.NewPath(fullPath, false, info))
		}
	}

	// WalkDir visits each directory's entries in lexical order, but a full
	// path comparison can disagree with that around the separator byte.
	// Sort so one run's processing order is strictly lexicographic.
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].String() < paths[j].String()
	})

	return paths, nil
}

// IsIgnored reports whether a file matches the configured ignore patterns
// or the root's ignore file.
func (m *OSFilesystemManager) IsIgnored(path *locker.Path, rootPath string) (bool, error) {
	relativePath, err := filepath.Rel(rootPath, path.String())
	if err != nil {
		return false, fmt.Errorf("calculating relative path: %w", err)
	}

	if m.ignore.Match(relativePath) {
		return true, nil
	}

	rootMatcher, err := m.rootIgnoreMatcher(rootPath)
	if err != nil {
		return false, err
	}
	return rootMatcher.Match(relativePath), nil
}

// rootIgnoreMatcher returns the parsed ignore file for a root, loading and
// caching it on first use.
func (m *OSFilesystemManager) rootIgnoreMatcher(rootPath string) (*IgnoreMatcher, error) {
	if matcher, ok := m.rootIgnores[rootPath]; ok {
		return matcher, nil
	}

	patterns, err := ParseIgnoreFile(filepath.Join(rootPath, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := NewIgnoreMatcher(patterns)
	m.rootIgnores[rootPath] = matcher
	return matcher, nil
}

// ReadFile reads the entire contents of a file.
func (m *OSFilesystemManager) ReadFile(path *locker.Path) ([]byte, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot read directory as file: %s", path.String())
	}
	return os.ReadFile(path.String())
}

// WriteFileAtomic replaces the contents of path with data using a temp
// file and rename, so readers never observe a partial write.
func (m *OSFilesystemManager) WriteFileAtomic(path *locker.Path, data []byte, mode fs.FileMode) error {
	if path.IsDir() {
		return fmt.Errorf("cannot write directory as file: %s", path.String())
	}

	// Create the temp file in the same directory so the rename stays on
	// one filesystem.
	dir := filepath.Dir(path.String())
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, mode.Perm()); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path.String()); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that OSFilesystemManager implements locker.FilesystemManager interface
var _ locker.FilesystemManager = (*OSFilesystemManager)(nil)
