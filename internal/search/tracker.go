// Package search tracks in-flight uplink searches so a superseded search is
// cancelled and its late result can be recognised and dropped.
package search

import (
	"context"
	"sync"
)

// Generation identifies one search for a key. Later searches have larger
// generations.
type Generation uint64

// entry is the state of one key. running counts every search of the key
// that has not called done yet, superseded ones included.
type entry struct {
	last    Generation
	cancel  context.CancelFunc
	running int
}

// Tracker holds the current search per key. Keys are session IDs. A key is
// dropped once none of its searches is running, so generations of an idle
// key start again at 1.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Begin starts a search for key. Any search still running for the same key is
// cancelled. The caller must call done once the search finished.
func (t *Tracker) Begin(parent context.Context, key string) (context.Context, Generation, func()) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{}
		t.entries[key] = e
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.last++
	e.cancel = cancel
	e.running++
	gen := e.last
	t.mu.Unlock()

	var once sync.Once
	done := func() {
		once.Do(func() {
			cancel()
			t.mu.Lock()
			defer t.mu.Unlock()
			e.running--
			if e.last == gen {
				e.cancel = nil
			}
			if e.running == 0 {
				delete(t.entries, key)
			}
		})
	}
	return ctx, gen, done
}

// IsCurrent reports whether gen is the newest search started for key
func (t *Tracker) IsCurrent(key string, gen Generation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	return ok && e.last == gen
}

// Len returns the number of keys with a running search
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Forget cancels a running search for key and makes every search started so
// far stale. The key is dropped right away when nothing is running.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.running == 0 {
		delete(t.entries, key)
		return
	}
	e.last++
}
