package model

import (
	"context"
	"log/slog"
	"sync"
)

// NoticeCode identifies a non-fatal diagnostic.
type NoticeCode string

const (
	NoticeNumericalNaN       NoticeCode = "NUMERICAL_NAN"
	NoticeInterpolation      NoticeCode = "INTERPOLATION"
	NoticeDuplicateName      NoticeCode = "DUPLICATE_NAME"
	NoticeNoFrequency        NoticeCode = "NO_FREQUENCY"
	NoticeNoiseUnavailable   NoticeCode = "NOISE_UNAVAILABLE"
	NoticeInitialParameters  NoticeCode = "INITIAL_PARAMETERS"
	NoticeMissingComponent   NoticeCode = "MISSING_COMPONENT"
	NoticeSolverNotConverged NoticeCode = "SOLVER_NOT_CONVERGED"
)

// Notice is a non-fatal diagnostic emitted by a model operation.
type Notice struct {
	Level   slog.Level
	Code    NoticeCode
	Message string
	Attrs   []slog.Attr
}

// Sink receives notices. Implementations must be safe for concurrent use:
// solvers evaluate residuals from several goroutines.
type Sink interface {
	Notify(n Notice)
}

// LogSink forwards notices to a slog.Logger.
type LogSink struct {
	Logger *slog.Logger
}

// Notify implements Sink.
func (s LogSink) Notify(n Notice) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := append([]slog.Attr{slog.String("code", string(n.Code))}, n.Attrs...)
	logger.LogAttrs(context.Background(), n.Level, n.Message, attrs...)
}

// Recorder collects notices in memory.
//
// Thread-safety: Recorder is safe for concurrent use via internal mutex.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify implements Sink.
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices in arrival order.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Count returns how many notices with code were recorded.
func (r *Recorder) Count(code NoticeCode) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Code == code {
			n++
		}
	}
	return n
}

// Has reports whether a notice with code was recorded.
func (r *Recorder) Has(code NoticeCode) bool {
	return r.Count(code) > 0
}

// Reset discards all recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}

// MultiSink fans notices out to several sinks.
type MultiSink []Sink

// Notify implements Sink.
func (m MultiSink) Notify(n Notice) {
	for _, s := range m {
		s.Notify(n)
	}
}
