package testutil

import (
	"bytes"
	"strings"
	"sync"
)

// MockWriter is a concurrency-safe io.Writer that records everything written
// to it. Log sinks under test write here.
type MockWriter struct {
	buf        *bytes.Buffer
	mu         sync.Mutex
	writeCount int
}

// NewMockWriter creates a new MockWriter.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		buf: &bytes.Buffer{},
	}
}

// Write implements io.Writer.
func (mw *MockWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	mw.writeCount++
	return mw.buf.Write(p)
}

// String returns the current buffer contents.
func (mw *MockWriter) String() string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.String()
}

// Lines returns the non-empty lines written so far.
func (mw *MockWriter) Lines() []string {
	var lines []string
	for _, line := range strings.Split(mw.String(), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// WriteCount returns the number of Write calls.
func (mw *MockWriter) WriteCount() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.writeCount
}

// Reset clears the buffer and resets counters.
func (mw *MockWriter) Reset() {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.buf.Reset()
	mw.writeCount = 0
}

// Recorder collects values from concurrent callbacks in arrival order.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

// Add appends v.
func (r *Recorder[T]) Add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

// Values returns a copy of the recorded values.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the number of recorded values.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}
