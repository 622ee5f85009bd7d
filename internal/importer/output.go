package importer

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/lozio/venues/internal/export"
)

// Output is where generated files are read back and written.
type Output interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

// DirOutput stores files under Root, replacing them atomically.
type DirOutput struct {
	Root string
}

// ReadFile reads name relative to Root.
func (d DirOutput) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(d.path(name))
}

// WriteFile writes name relative to Root.
func (d DirOutput) WriteFile(name string, data []byte) error {
	return export.WriteFile(d.path(name), data)
}

func (d DirOutput) path(name string) string {
	return filepath.Join(d.Root, filepath.FromSlash(name))
}

// MemOutput keeps files in memory.
type MemOutput struct {
	mu    sync.Mutex
	Files map[string][]byte
}

// NewMemOutput returns an empty MemOutput.
func NewMemOutput() *MemOutput {
	return &MemOutput{Files: make(map[string][]byte)}
}

// ReadFile returns a copy of name, or an fs.ErrNotExist error.
func (m *MemOutput) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// WriteFile stores a copy of data under name.
func (m *MemOutput) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[name] = append([]byte(nil), data...)
	return nil
}

// File returns the content stored under name as a string.
func (m *MemOutput) File(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.Files[name])
}
