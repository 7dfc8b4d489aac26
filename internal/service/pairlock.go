package service

import "sync"

// pairKey is the canonical (lower id, higher id) form of an unordered pair.
type pairKey struct {
	lo, hi uint
}

func makePairKey(a, b uint) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

// pairLocks serializes edge mutations per unordered pair of participants.
// Two concurrent sendRequest calls for the same pair would otherwise both
// pass the duplicate check before either insert lands (check-then-act
// race). Entries are reference counted and removed when released so the
// registry does not grow with the user base.
type pairLocks struct {
	mu    sync.Mutex
	locks map[pairKey]*pairLock
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[pairKey]*pairLock)}
}

// Lock acquires the mutex for the unordered pair (a, b) and returns the
// release function.
func (p *pairLocks) Lock(a, b uint) func() {
	key := makePairKey(a, b)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
