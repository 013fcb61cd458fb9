package chat

import "sync"

// pairLocks serializes exchanges per (user, persona) pair. Distinct pairs
// proceed fully in parallel; the same pair is single-writer so concurrent
// messages cannot interleave counter updates.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns its unlock func.
func (p *pairLocks) acquire(key string) func() {
	p.mu.Lock()
	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
