package testutil

import "sync"

// RecordingLogger captures log messages by level for assertions.
// Safe for concurrent use.
type RecordingLogger struct {
	mu     sync.Mutex
	debugs []string
	infos  []string
	warns  []string
	errs   []string
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record(&l.debugs, msg) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record(&l.infos, msg) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record(&l.warns, msg) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record(&l.errs, msg) }

func (l *RecordingLogger) record(dst *[]string, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, msg)
}

// Debugs returns the captured debug messages.
func (l *RecordingLogger) Debugs() []string { return l.snapshot(&l.debugs) }

// Infos returns the captured info messages.
func (l *RecordingLogger) Infos() []string { return l.snapshot(&l.infos) }

// Warns returns the captured warning messages.
func (l *RecordingLogger) Warns() []string { return l.snapshot(&l.warns) }

// Errors returns the captured error messages.
func (l *RecordingLogger) Errors() []string { return l.snapshot(&l.errs) }

func (l *RecordingLogger) snapshot(src *[]string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), *src...)
}
