package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"datalocker/internal/locker"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing.
// It mirrors the error behavior of the real manager: missing or
// irregular paths fail Resolve with ErrInvalidPath, and FindFiles
// returns regular files in lexicographic order.
type MockFilesystemManager struct {
	files   map[string]*MockFile
	ignored map[string]bool

	readErrs  map[string]error
	writeErrs map[string]error
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:     make(map[string]*MockFile),
		ignored:   make(map[string]bool),
		readErrs:  make(map[string]error),
		writeErrs: make(map[string]error),
	}
}

// AddFile adds a regular file with mode 0644 to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.AddFileWithMode(path, content, 0644)
}

// AddFileWithMode adds a regular file with an explicit mode.
func (m *MockFilesystemManager) AddFileWithMode(path string, content []byte, mode fs.FileMode) {
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: mode,
		ModTime:     time.Now(),
		IsDirectory: false,
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.files[path] = &MockFile{
		Permissions: 0755 | fs.ModeDir,
		ModTime:     time.Now(),
		IsDirectory: true,
	}
}

// RemoveFile deletes a path from the mock filesystem, simulating a file
// removed behind the tool's back.
func (m *MockFilesystemManager) RemoveFile(path string) {
	delete(m.files, path)
}

// SetIgnored marks a path as matching the ignore rules.
func (m *MockFilesystemManager) SetIgnored(path string) {
	m.ignored[path] = true
}

// FailRead makes ReadFile for the given path return err.
func (m *MockFilesystemManager) FailRead(path string, err error) {
	m.readErrs[path] = err
}

// FailWrite makes WriteFileAtomic for the given path return err.
func (m *MockFilesystemManager) FailWrite(path string, err error) {
	m.writeErrs[path] = err
}

// File returns the stored file for a path, or nil if absent.
// Tests use it to inspect what WriteFileAtomic persisted.
func (m *MockFilesystemManager) File(path string) *MockFile {
	return m.files[path]
}

// Resolve validates a raw path against the mock filesystem.
func (m *MockFilesystemManager) Resolve(rawPath string) (*locker.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", locker.ErrInvalidPath, absPath)
	}

	return locker.NewPath(absPath, file.IsDirectory, m.fileInfo(absPath, file)), nil
}

// Stat returns fresh file info for a path.
func (m *MockFilesystemManager) Stat(path *locker.Path) (fs.FileInfo, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	return m.fileInfo(path.String(), file), nil
}

// FindFiles returns the regular files under a directory, sorted
// lexicographically by absolute path.
func (m *MockFilesystemManager) FindFiles(path *locker.Path, recursive bool) ([]*locker.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}

	dir := path.String()
	prefix := dir + string(filepath.Separator)

	var paths []*locker.Path
	for p, file := range m.files {
		if file.IsDirectory || !strings.HasPrefix(p, prefix) {
			continue
		}
		if !recursive && filepath.Dir(p) != dir {
			continue
		}
		paths = append(paths, locker.NewPath(p, false, m.fileInfo(p, file)))
	}

	sort.Slice(paths, func(i, j int) bool {
		return paths[i].String() < paths[j].String()
	})

	return paths, nil
}

// IsIgnored reports whether a path was marked ignored via SetIgnored.
func (m *MockFilesystemManager) IsIgnored(path *locker.Path, rootPath string) (bool, error) {
	return m.ignored[path.String()], nil
}

// ReadFile reads the entire contents of a file.
func (m *MockFilesystemManager) ReadFile(path *locker.Path) ([]byte, error) {
	if err, ok := m.readErrs[path.String()]; ok {
		return nil, err
	}

	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot read directory as file: %s", path.String())
	}

	content := make([]byte, len(file.Content))
	copy(content, file.Content)
	return content, nil
}

// WriteFileAtomic replaces the contents of path with data.
// The mock applies the write in one step, matching the all-or-nothing
// behavior of the real temp-and-rename implementation.
func (m *MockFilesystemManager) WriteFileAtomic(path *locker.Path, data []byte, mode fs.FileMode) error {
	if err, ok := m.writeErrs[path.String()]; ok {
		return err
	}

	if path.IsDir() {
		return fmt.Errorf("cannot write directory as file: %s", path.String())
	}

	content := make([]byte, len(data))
	copy(content, data)
	m.files[path.String()] = &MockFile{
		Content:     content,
		Permissions: mode.Perm(),
		ModTime:     time.Now(),
		IsDirectory: false,
	}
	return nil
}

func (m *MockFilesystemManager) fileInfo(path string, file *MockFile) fs.FileInfo {
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ locker.FilesystemManager = (*MockFilesystemManager)(nil)
