package executors

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/ledger"
)

// InterestExecutor synthesizes one month of interest for every active
// account carrying a balance. The accrual is posted immediately as an
// already-processed transaction: it is generated under this executor's
// exclusive mutation of the account, so queueing it for the posting job
// would only add a window for double application.
type InterestExecutor struct {
	store          ledger.Store
	defaultRateBPS int64
	log            zerolog.Logger
}

// NewInterestExecutor builds the interest executor. defaultRateBPS applies
// to accounts without an assigned rate.
func NewInterestExecutor(store ledger.Store, defaultRateBPS int64, log zerolog.Logger) *InterestExecutor {
	return &InterestExecutor{store: store, defaultRateBPS: defaultRateBPS, log: log}
}

// Name implements batch.Executor.
func (e *InterestExecutor) Name() string { return batch.JobInterestCalculation }

// Execute implements batch.Executor. Accounts are visited once, in account
// id order; no account appears twice in a run.
func (e *InterestExecutor) Execute(ctx context.Context, res *batch.Result, params batch.Params) error {
	accounts, err := e.store.ListActiveAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list active accounts: %w", err)
	}
	asOf := defaultAsOf(params.AsOf)
	ids := newIDSource()

	created := 0
	for _, acct := range accounts {
		if acct.CurrentBalance == 0 {
			continue
		}
		rate := acct.AnnualRateBPS
		if rate == 0 {
			rate = e.defaultRateBPS
		}
		interest := domain.MonthlyInterest(acct.CurrentBalance, rate)
		if interest == 0 {
			// Rounded to zero: the account is done, but no zero-amount
			// transaction enters the ledger.
			res.RecordSuccess()
			continue
		}

		tx := &domain.Transaction{
			TransactionID: ids.Next(),
			AccountID:     acct.AccountID,
			Amount:        -interest,
			Type:          domain.TypeInterest,
			Description:   fmt.Sprintf("Interest %d.%02d%% APR", rate/100, rate%100),
			Date:          asOf,
			Processed:     true,
		}
		err := e.store.PostNewTransaction(ctx, tx, func(a *domain.Account) error {
			if !a.ActiveStatus {
				return domain.ErrAccountInactive
			}
			a.Apply(tx.Amount)
			return nil
		})
		switch {
		case err == nil:
			created++
			res.RecordSuccess()
		case recordFault(err):
			res.RecordFailure(fmt.Sprintf("account %d: %v", acct.AccountID, err))
		default:
			return fmt.Errorf("post interest for account %d: %w", acct.AccountID, err)
		}
	}

	e.log.Debug().
		Str("job_id", res.JobID).
		Int("accounts", len(accounts)).
		Int("accruals", created).
		Msg("Interest pass finished")
	return nil
}

var _ batch.Executor = (*InterestExecutor)(nil)
