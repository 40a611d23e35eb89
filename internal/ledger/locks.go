package ledger

import "sync"

// AccountLocks is a keyed mutex registry: one lock per account id, created
// on first use. Lock scope is a single record's read-modify-write, so
// concurrent runs only contend when they touch the same account.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewAccountLocks creates an empty registry.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the exclusive lock for the account, creating it if needed.
func (l *AccountLocks) Lock(accountID int64) {
	l.get(accountID).Lock()
}

// Unlock releases the account's lock.
func (l *AccountLocks) Unlock(accountID int64) {
	l.get(accountID).Unlock()
}

func (l *AccountLocks) get(accountID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	return m
}
