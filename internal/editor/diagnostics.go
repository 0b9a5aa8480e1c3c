package editor

import (
	"sync"
	"time"
)

// DiagnosticKind classifies an ignored editor operation.
type DiagnosticKind string

const (
	DiagUnknownComponent DiagnosticKind = "unknown_component"
	DiagLockedComponent  DiagnosticKind = "locked_component"
	DiagInvalidValue     DiagnosticKind = "invalid_value"
	DiagNotMeasurable    DiagnosticKind = "not_measurable"
)

// Diagnostic describes an operation the editor ignored to keep the document
// valid. The document is unchanged whenever a diagnostic is emitted.
type Diagnostic struct {
	Kind        DiagnosticKind `json:"kind"`
	Op          string         `json:"op"`
	ComponentID string         `json:"componentId,omitempty"`
	Detail      string         `json:"detail,omitempty"`
	At          time.Time      `json:"at"`
}

// DiagnosticSink receives diagnostics. Report is called with the editor lock
// held and must not call back into the editor.
type DiagnosticSink interface {
	Report(d Diagnostic)
}

// DiagnosticFunc adapts a function to DiagnosticSink.
type DiagnosticFunc func(d Diagnostic)

func (f DiagnosticFunc) Report(d Diagnostic) { f(d) }

// DiagnosticLog keeps the most recent diagnostics in memory.
type DiagnosticLog struct {
	mu      sync.Mutex
	limit   int
	entries []Diagnostic
}

// NewDiagnosticLog returns a log retaining at most limit entries.
func NewDiagnosticLog(limit int) *DiagnosticLog {
	if limit <= 0 {
		limit = 50
	}
	return &DiagnosticLog{limit: limit}
}

func (l *DiagnosticLog) Report(d Diagnostic) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, d)
	if over := len(l.entries) - l.limit; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
}

// Entries returns a copy of the retained diagnostics, oldest first.
func (l *DiagnosticLog) Entries() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Diagnostic(nil), l.entries...)
}
