// Package memory stores page snapshots in-memory for tests and development.
package memory

import (
	"context"
	"sync"
)

// Archiver keeps archived HTML in a map keyed by path.
type Archiver struct {
	mu    sync.RWMutex
	pages map[string]string
}

// New creates an in-memory archiver.
func New() *Archiver {
	return &Archiver{pages: make(map[string]string)}
}

// Archive records the HTML and returns a pseudo URI.
func (a *Archiver) Archive(_ context.Context, path string, html string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pages[path] = html
	return "memory://" + path, nil
}

// Get returns the archived HTML for a path.
func (a *Archiver) Get(path string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	html, ok := a.pages[path]
	return html, ok
}

// Len reports the number of archived snapshots.
func (a *Archiver) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pages)
}
