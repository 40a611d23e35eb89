package executors

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/ledger"
)

// PostingExecutor applies every unprocessed transaction to its account's
// balance exactly once, then flags it processed. Because only unprocessed
// transactions are selected, a re-run after a partial prior run only
// touches the remainder: the job converges to the same ledger state no
// matter where a crash interrupted it.
type PostingExecutor struct {
	store ledger.Store
	log   zerolog.Logger
}

// NewPostingExecutor builds the transaction posting executor.
func NewPostingExecutor(store ledger.Store, log zerolog.Logger) *PostingExecutor {
	return &PostingExecutor{store: store, log: log}
}

// Name implements batch.Executor.
func (e *PostingExecutor) Name() string { return batch.JobTransactionPosting }

// Execute implements batch.Executor.
func (e *PostingExecutor) Execute(ctx context.Context, res *batch.Result, _ batch.Params) error {
	txs, err := e.store.ListUnprocessedTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list unprocessed transactions: %w", err)
	}

	for _, tx := range txs {
		amount := tx.Amount
		err := e.store.ApplyTransaction(ctx, tx.TransactionID, func(acct *domain.Account) error {
			if !acct.ActiveStatus {
				return domain.ErrAccountInactive
			}
			acct.Apply(amount)
			return nil
		})
		switch {
		case err == nil:
			res.RecordSuccess()
		case recordFault(err):
			res.RecordFailure(fmt.Sprintf("transaction %s (account %d): %v", tx.TransactionID, tx.AccountID, err))
		default:
			return fmt.Errorf("post transaction %s: %w", tx.TransactionID, err)
		}
	}

	e.log.Debug().
		Str("job_id", res.JobID).
		Int("candidates", len(txs)).
		Msg("Transaction posting pass finished")
	return nil
}

var _ batch.Executor = (*PostingExecutor)(nil)
