// Package ledger defines the store contract the batch executors run
// against. The engine does not own the persistence technology; it owns
// this interface, an in-memory implementation for tests and single-node
// deployments, and a MySQL implementation for production.
package ledger

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// Mutation is a read-modify-write step applied to an account while its
// per-account lock (or row lock) is held. Returning an error abandons the
// mutation: the store must not persist any change in that case.
type Mutation func(*domain.Account) error

// Store is the Ledger Store contract consumed by the executors.
//
// Write operations serialize per account: two concurrent runs touching the
// same account must not interleave inside a single record's
// read-modify-write. Lock scope is one account for one record's mutation,
// never the whole run.
type Store interface {
	// GetAccount returns the account or domain.ErrAccountNotFound.
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)

	// ListAccounts returns every account ordered by account id.
	ListAccounts(ctx context.Context) ([]*domain.Account, error)

	// ListActiveAccounts returns active accounts ordered by account id.
	ListActiveAccounts(ctx context.Context) ([]*domain.Account, error)

	// UpsertAccount inserts or replaces an account record.
	UpsertAccount(ctx context.Context, acct *domain.Account) error

	// ListUnprocessedTransactions returns transactions with the processed
	// flag unset, ordered by (date, transaction id). The ordering is stable
	// and reproducible so repeated runs over the same unprocessed set post
	// in the same sequence regardless of wall-clock time.
	ListUnprocessedTransactions(ctx context.Context) ([]*domain.Transaction, error)

	// ListTransactions returns every transaction ordered by (date, id).
	ListTransactions(ctx context.Context) ([]*domain.Transaction, error)

	// ListAccountTransactionsInWindow returns the account's transactions
	// with start <= date <= end, ordered by (date, id).
	ListAccountTransactionsInWindow(ctx context.Context, accountID int64, start, end civil.Date) ([]*domain.Transaction, error)

	// ApplyTransaction atomically applies mutate to the owning account of
	// the identified transaction and marks the transaction processed. A
	// transaction that is already processed is a no-op success, so a
	// crashed run can be re-run without double-posting. Returns
	// domain.ErrTransactionNotFound or domain.ErrAccountNotFound when the
	// referenced entities are missing; mutate errors pass through and
	// nothing is persisted.
	ApplyTransaction(ctx context.Context, transactionID string, mutate Mutation) error

	// PostNewTransaction atomically inserts a synthesized transaction and
	// applies mutate to its account, under the account lock. Used by the
	// interest executor, which generates already-processed transactions.
	PostNewTransaction(ctx context.Context, tx *domain.Transaction, mutate Mutation) error

	// UpsertTransaction inserts or replaces an imported transaction without
	// touching the account balance. Import records carry their processed
	// flag verbatim.
	UpsertTransaction(ctx context.Context, tx *domain.Transaction) error

	// ListCustomers returns every customer ordered by customer id.
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)

	// UpsertCustomer inserts or replaces a customer record.
	UpsertCustomer(ctx context.Context, c *domain.Customer) error

	// ListCards returns every card ordered by card number.
	ListCards(ctx context.Context) ([]*domain.Card, error)

	// UpsertCard inserts or replaces a card record. The card's account must
	// exist; otherwise domain.ErrAccountNotFound is returned.
	UpsertCard(ctx context.Context, c *domain.Card) error
}
