package core

import (
	"strings"
	"sync"
)

// MockWriter is a thread-safe io.Writer for capturing log output in tests.
type MockWriter struct {
	mu   sync.Mutex
	data []byte
}

func (w *MockWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *MockWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.data)
}

// Lines returns the non-empty lines written so far.
func (w *MockWriter) Lines() []string {
	var lines []string
	for _, l := range strings.Split(w.String(), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
