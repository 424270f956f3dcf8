package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Scope owns the temporary files of a single pipeline run. Every path handed
// out or tracked by the scope is removed by Cleanup, which callers defer
// immediately after creating the scope.
type Scope struct {
	dir    string
	prefix string

	mu    sync.Mutex
	paths []string
}

// NewScope creates a scope placing files in dir, creating dir if needed.
// prefix is prepended to every file name so concurrent scopes sharing a
// directory never collide.
func NewScope(dir, prefix string) (*Scope, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	return &Scope{dir: dir, prefix: prefix}, nil
}

// Dir returns the directory holding the scope's files.
func (s *Scope) Dir() string {
	return s.dir
}

// Base returns an untracked path stem for name. Producers that pick their own
// extension (downloads, generated images) write to Base(name)+ext and the
// caller tracks the returned path.
func (s *Scope) Base(name string) string {
	return filepath.Join(s.dir, s.prefix+"-"+name)
}

// Track registers path for removal on Cleanup.
func (s *Scope) Track(path string) {
	if path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
}

// WriteFile writes data to a tracked file named name and returns its path.
func (s *Scope) WriteFile(name string, data []byte) (string, error) {
	path := s.Base(name)
	s.Track(path)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Create opens a new tracked file named name for writing.
func (s *Scope) Create(name string) (*os.File, error) {
	path := s.Base(name)
	s.Track(path)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

// Cleanup removes every tracked path. Missing files are ignored. It is safe
// to call more than once.
func (s *Scope) Cleanup() error {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
