// Package fsutil abstracts where report artefacts are written so the
// renderers can be exercised against memory in tests.
package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/banshee-data/pulse.report/internal/security"
)

// FileSystem is a flat output directory. Names are relative to it.
type FileSystem interface {
	// Create creates or truncates the named file.
	Create(name string) (io.WriteCloser, error)

	// ReadFile reads the named file.
	ReadFile(name string) ([]byte, error)

	// Exists reports whether name exists.
	Exists(name string) bool
}

// DirFS writes into a directory on disk. Every name is checked to resolve
// inside the directory before it is opened.
type DirFS struct {
	root string
}

// NewDirFS creates dir if needed and returns a FileSystem rooted there.
func NewDirFS(dir string) (*DirFS, error) {
	root, err := security.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &DirFS{root: root}, nil
}

// Root returns the absolute directory path.
func (d *DirFS) Root() string { return d.root }

// Path returns the on-disk path for name without validating it.
func (d *DirFS) Path(name string) string { return filepath.Join(d.root, name) }

func (d *DirFS) resolve(name string) (string, error) {
	path := d.Path(name)
	if err := security.ValidatePathWithinDirectory(path, d.root); err != nil {
		return "", err
	}
	return path, nil
}

// Create creates the named file.
func (d *DirFS) Create(name string) (io.WriteCloser, error) {
	path, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// ReadFile reads the named file.
func (d *DirFS) ReadFile(name string) ([]byte, error) {
	path, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Exists reports whether name exists under the root.
func (d *DirFS) Exists(name string) bool {
	path, err := d.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// MemoryFileSystem keeps files in memory for tests.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryFileSystem creates an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{files: make(map[string][]byte)}
}

// Create creates or truncates a file. Contents become visible on Close.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	name = filepath.Clean(name)
	m.mu.Lock()
	m.files[name] = []byte{}
	m.mu.Unlock()
	return &memFileWriter{fs: m, name: name}, nil
}

// ReadFile returns a copy of the file's contents.
func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = filepath.Clean(name)
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Exists reports whether name has been created.
func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[filepath.Clean(name)]
	return ok
}

// Names lists the files in lexical order.
func (m *MemoryFileSystem) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type memFileWriter struct {
	fs   *MemoryFileSystem
	name string
	buf  []byte
}

func (f *memFileWriter) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	return len(p), nil
}

func (f *memFileWriter) Close() error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	f.fs.files[f.name] = f.buf
	return nil
}
