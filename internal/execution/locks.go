package execution

import "sync"

// pairLocks serializes executions per pair. Locks are acquired with
// try-lock semantics: a busy pair means the caller drops the opportunity.
type pairLocks struct {
	mu    sync.Mutex
	inUse map[string]struct{}
}

func newPairLocks() *pairLocks {
	return &pairLocks{inUse: make(map[string]struct{})}
}

func (l *pairLocks) tryLock(pairID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.inUse[pairID]; busy {
		return false
	}
	l.inUse[pairID] = struct{}{}
	return true
}

func (l *pairLocks) unlock(pairID string) {
	l.mu.Lock()
	delete(l.inUse, pairID)
	l.mu.Unlock()
}
