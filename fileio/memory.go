package fileio

import (
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

// Memory is an in-memory Store, used by dry runs and tests.
type Memory struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes map[string]int
}

var _ Store = (*Memory)(nil)

// NewMemory returns a Memory store seeded with files.
func NewMemory(files map[string]string) *Memory {
	m := &Memory{files: make(map[string][]byte), writes: make(map[string]int)}
	for p, content := range files {
		m.files[p] = []byte(content)
	}
	return m
}

// Read returns a copy of the stored bytes.
func (m *Memory) Read(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", path, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// Exists reports whether path was seeded or written.
func (m *Memory) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

// Write stores a copy of data.
func (m *Memory) Write(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
	m.writes[path]++
	return nil
}

// Content returns the stored file as a string.
func (m *Memory) Content(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.files[path])
}

// Writes returns how many times path was written.
func (m *Memory) Writes(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[path]
}

// Paths returns all stored paths, sorted.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
