package history

import "sync"

// lockTable serializes operations per conversation. Two operations on the
// same conversation must never interleave (the merge excursion moves the
// shared working tree), while different conversations touch disjoint
// directories and may proceed concurrently.
type lockTable struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: map[int64]*sync.Mutex{}}
}

// Lock acquires the conversation's mutex and returns its unlock function.
func (t *lockTable) Lock(conversationID int64) func() {
	t.mu.Lock()
	l, ok := t.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[conversationID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
