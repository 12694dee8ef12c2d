package locker

// FileError records a single file's failure during a directory walk.
type FileError struct {
	Path string
	Err  error
}

func (fe *FileError) Error() string {
	return fe.Path + ": " + fe.Err.Error()
}

func (fe *FileError) Unwrap() error {
	return fe.Err
}

// Report aggregates per-file outcomes of one encrypt or decrypt invocation.
// Every processed file lands in exactly one of the two lists; no file is
// skipped silently.
type Report struct {
	Succeeded []string
	Failed    []*FileError
}

// Total returns the number of files processed.
func (r *Report) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// Ok returns true when no file failed.
func (r *Report) Ok() bool {
	return len(r.Failed) == 0
}

func (r *Report) addSuccess(path string) {
	r.Succeeded = append(r.Succeeded, path)
}

func (r *Report) addFailure(path string, err error) {
	r.Failed = append(r.Failed, &FileError{Path: path, Err: err})
}
