package store

import (
	"errors"
	"sync"

	"github.com/i474232898/site-analytics/internal/pagination"
)

var (
	// ErrNotFound is returned when no view is cached for a session.
	ErrNotFound = errors.New("no statistics for session")
)

type entry struct {
	view *pagination.View
	gen  uint64
}

// SessionCache is a concurrency-safe in-memory map of session id to view.
type SessionCache struct {
	mu sync.RWMutex

	// key: session id
	data map[string]entry

	// gen increases on every Put so reconciliation can tell entries stored
	// after its snapshot apart from the ones it checked.
	gen uint64
}

// KeySnapshot is the set of ids present at one moment.
type KeySnapshot struct {
	IDs []string
	gen uint64
}

// NewSessionCache creates an empty cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{
		data: make(map[string]entry),
	}
}

// Put stores view for id, replacing any previous view.
func (c *SessionCache) Put(id string, view *pagination.View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.data[id] = entry{view: view, gen: c.gen}
}

// Get returns the view cached for id.
func (c *SessionCache) Get(id string) (*pagination.View, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.view, nil
}

// Len returns the number of cached views.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Snapshot returns the ids currently cached.
func (c *SessionCache) Snapshot() KeySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.data))
	for id := range c.data {
		ids = append(ids, id)
	}
	return KeySnapshot{IDs: ids, gen: c.gen}
}

// Reconcile removes every entry whose id is not in existing, except entries
// stored after snap was taken. It returns the removed ids.
func (c *SessionCache) Reconcile(snap KeySnapshot, existing map[string]struct{}) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for id, e := range c.data {
		if e.gen > snap.gen {
			continue
		}
		if _, ok := existing[id]; ok {
			continue
		}
		delete(c.data, id)
		removed = append(removed, id)
	}
	return removed
}
