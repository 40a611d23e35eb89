// Package inmemory provides a map-backed ledger store. It is safe for
// concurrent use and suitable for tests and single-instance deployments;
// production runs use the MySQL store.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/ledger"
)

// Store holds the ledger in memory. Reads return copies so callers cannot
// mutate shared state behind the store's back; writes to an account happen
// under that account's keyed lock.
type Store struct {
	mu           sync.RWMutex
	accounts     map[int64]*domain.Account
	transactions map[string]*domain.Transaction
	customers    map[int64]*domain.Customer
	cards        map[string]*domain.Card
	locks        *ledger.AccountLocks
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[int64]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		customers:    make(map[int64]*domain.Customer),
		cards:        make(map[string]*domain.Card),
		locks:        ledger.NewAccountLocks(),
	}
}

// GetAccount implements ledger.Store.
func (s *Store) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

// ListAccounts implements ledger.Store.
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		cp := *acct
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// ListActiveAccounts implements ledger.Store.
func (s *Store) ListActiveAccounts(ctx context.Context) ([]*domain.Account, error) {
	all, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, acct := range all {
		if acct.ActiveStatus {
			out = append(out, acct)
		}
	}
	return out, nil
}

// UpsertAccount implements ledger.Store.
func (s *Store) UpsertAccount(ctx context.Context, acct *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *acct
	s.accounts[acct.AccountID] = &cp
	return nil
}

// ListUnprocessedTransactions implements ledger.Store.
func (s *Store) ListUnprocessedTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Transaction
	for _, tx := range s.transactions {
		if !tx.Processed {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sortTransactions(out)
	return out, nil
}

// ListTransactions implements ledger.Store.
func (s *Store) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		cp := *tx
		out = append(out, &cp)
	}
	sortTransactions(out)
	return out, nil
}

// ListAccountTransactionsInWindow implements ledger.Store.
func (s *Store) ListAccountTransactionsInWindow(ctx context.Context, accountID int64, start, end civil.Date) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Transaction
	for _, tx := range s.transactions {
		if tx.AccountID != accountID {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	sortTransactions(out)
	return out, nil
}

// ApplyTransaction implements ledger.Store. The account's keyed lock is
// held for the full read-modify-write, and the processed flag flips in the
// same critical section as the balance change.
func (s *Store) ApplyTransaction(ctx context.Context, transactionID string, mutate ledger.Mutation) error {
	s.mu.RLock()
	tx, ok := s.transactions[transactionID]
	var accountID int64
	if ok {
		accountID = tx.AccountID
	}
	s.mu.RUnlock()
	if !ok {
		return domain.ErrTransactionNotFound
	}

	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)

	s.mu.RLock()
	tx, ok = s.transactions[transactionID]
	if !ok {
		s.mu.RUnlock()
		return domain.ErrTransactionNotFound
	}
	if tx.Processed {
		// Already applied by a previous or concurrent run.
		s.mu.RUnlock()
		return nil
	}
	acct, ok := s.accounts[tx.AccountID]
	if !ok {
		s.mu.RUnlock()
		return domain.ErrAccountNotFound
	}
	acctCopy := *acct
	txCopy := *tx
	s.mu.RUnlock()

	if err := mutate(&acctCopy); err != nil {
		return err
	}
	txCopy.Processed = true

	s.mu.Lock()
	s.accounts[acctCopy.AccountID] = &acctCopy
	s.transactions[txCopy.TransactionID] = &txCopy
	s.mu.Unlock()
	return nil
}

// PostNewTransaction implements ledger.Store.
func (s *Store) PostNewTransaction(ctx context.Context, tx *domain.Transaction, mutate ledger.Mutation) error {
	s.locks.Lock(tx.AccountID)
	defer s.locks.Unlock(tx.AccountID)

	s.mu.RLock()
	acct, ok := s.accounts[tx.AccountID]
	if !ok {
		s.mu.RUnlock()
		return domain.ErrAccountNotFound
	}
	acctCopy := *acct
	s.mu.RUnlock()

	if err := mutate(&acctCopy); err != nil {
		return err
	}

	txCopy := *tx
	s.mu.Lock()
	s.accounts[acctCopy.AccountID] = &acctCopy
	s.transactions[txCopy.TransactionID] = &txCopy
	s.mu.Unlock()
	return nil
}

// UpsertTransaction implements ledger.Store.
func (s *Store) UpsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.transactions[tx.TransactionID] = &cp
	return nil
}

// ListCustomers implements ledger.Store.
func (s *Store) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// UpsertCustomer implements ledger.Store.
func (s *Store) UpsertCustomer(ctx context.Context, c *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.customers[c.CustomerID] = &cp
	return nil
}

// ListCards implements ledger.Store.
func (s *Store) ListCards(ctx context.Context) ([]*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Card, 0, len(s.cards))
	for _, c := range s.cards {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardNumber < out[j].CardNumber })
	return out, nil
}

// UpsertCard implements ledger.Store.
func (s *Store) UpsertCard(ctx context.Context, c *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[c.AccountID]; !ok {
		return domain.ErrAccountNotFound
	}
	cp := *c
	s.cards[c.CardNumber] = &cp
	return nil
}

func sortTransactions(txs []*domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].TransactionID < txs[j].TransactionID
	})
}

var _ ledger.Store = (*Store)(nil)
