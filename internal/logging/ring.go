package logging

import "sync"

// Ring keeps the most recent entries, overwriting the oldest.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	count   int
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = 1
	}
	return &Ring{
		entries: make([]Entry, size),
	}
}

func (r *Ring) Add(entry Entry) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count < len(r.entries) {
		r.entries[(r.start+r.count)%len(r.entries)] = entry
		r.count++
		return
	}
	r.entries[r.start] = entry
	r.start = (r.start + 1) % len(r.entries)
}

func (r *Ring) List() []Entry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return nil
	}
	out := make([]Entry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}
