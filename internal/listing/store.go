package listing

import (
	"sync"

	fsutil "github.com/kk-code-lab/rbrowse/internal/fs"
)

// Store holds the raw entries for the current navigation path. Responses
// replace the entry set wholesale; there is no merge.
type Store struct {
	mu       sync.RWMutex
	path     string
	loadedAt string
	loaded   bool
	entries  []fsutil.Entry
}

// NewStore returns a store positioned at root with nothing loaded.
func NewStore() *Store {
	return &Store{path: Root}
}

// SetPath changes the current path. Entries loaded for another path stop
// being visible until a response for the new path is applied.
func (s *Store) SetPath(p string) {
	p = NormalizePath(p)
	s.mu.Lock()
	s.path = p
	s.mu.Unlock()
}

// Path returns the current path.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Replace overwrites the entries for the current path.
func (s *Store) Replace(entries []fsutil.Entry) {
	s.mu.Lock()
	s.replaceLocked(s.path, entries)
	s.mu.Unlock()
}

// Apply replaces the entries only when forPath is still the current path.
// It reports whether the response was applied.
func (s *Store) Apply(forPath string, entries []fsutil.Entry) bool {
	forPath = NormalizePath(forPath)
	s.mu.Lock()
	defer s.mu.Unlock()
	if forPath != s.path {
		return false
	}
	s.replaceLocked(forPath, entries)
	return true
}

func (s *Store) replaceLocked(p string, entries []fsutil.Entry) {
	copied := make([]fsutil.Entry, len(entries))
	copy(copied, entries)
	s.entries = copied
	s.loadedAt = p
	s.loaded = true
}

// Current returns a copy of the entries for the current path, or nil when
// the current path has not been loaded yet.
func (s *Store) Current() []fsutil.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded || s.loadedAt != s.path {
		return nil
	}
	out := make([]fsutil.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Loaded reports whether entries for the current path have arrived.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded && s.loadedAt == s.path
}
