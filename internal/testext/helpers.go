// Package testext holds small helpers shared by the test suites.
package testext

import (
	"io"
	"log/slog"
	"sync"
)

// Sequence records which pieces of code ran, in order. Handlers behind an httptest server
// run on their own goroutines, so appends are guarded.
type Sequence struct {
	mutex  sync.Mutex
	values []string
}

// Append records the next step.
func (seq *Sequence) Append(value string) {
	seq.mutex.Lock()
	defer seq.mutex.Unlock()
	seq.values = append(seq.values, value)
}

// Value returns step N, or "" if we never got that far.
func (seq *Sequence) Value(index int) string {
	seq.mutex.Lock()
	defer seq.mutex.Unlock()
	if index >= len(seq.values) {
		return ""
	}
	return seq.values[index]
}

// Values returns a copy of every recorded step.
func (seq *Sequence) Values() []string {
	seq.mutex.Lock()
	defer seq.mutex.Unlock()
	return append([]string(nil), seq.values...)
}

// Reset forgets everything so the sequence can be reused within a test case.
func (seq *Sequence) Reset() {
	seq.mutex.Lock()
	defer seq.mutex.Unlock()
	seq.values = nil
}

// QuietLogger discards everything. Servers under test log every request.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
