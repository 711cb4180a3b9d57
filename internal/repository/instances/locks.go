package instances

import "sync"

// slugLocks tracks which slugs currently have an operation running.
// Acquisition never blocks: a second operation on a held slug is an error
// the caller surfaces, not work to queue behind the first.
type slugLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newSlugLocks() *slugLocks {
	return &slugLocks{
		held: make(map[string]struct{}),
	}
}

// tryLock reports whether the slug was free and is now held.
func (l *slugLocks) tryLock(slug string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[slug]; ok {
		return false
	}

	l.held[slug] = struct{}{}

	return true
}

func (l *slugLocks) unlock(slug string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, slug)
}
