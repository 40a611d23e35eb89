package executors

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/artifact"
	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/exchange"
	"github.com/dvloznov/cardcycle/internal/ledger"
)

// StatementConfig carries the billing policy applied to every statement.
type StatementConfig struct {
	// MinPaymentBPS is the minimum-payment rate in basis points of a
	// positive closing balance.
	MinPaymentBPS int64
	// MinPaymentFloor is the smallest minimum payment charged when any
	// payment is due at all.
	MinPaymentFloor domain.Money
	// GraceDays is the number of days after cycle end the payment is due.
	GraceDays int
}

// StatementExecutor builds one statement per active account over the cycle
// window and appends them to a single JSONL artifact. It reads the ledger
// and writes only the artifact; a re-run regenerates the same statements
// into a fresh file.
type StatementExecutor struct {
	store     ledger.Store
	artifacts *artifact.Store
	cfg       StatementConfig
	log       zerolog.Logger
}

// NewStatementExecutor builds the statement generation executor.
func NewStatementExecutor(store ledger.Store, artifacts *artifact.Store, cfg StatementConfig, log zerolog.Logger) *StatementExecutor {
	return &StatementExecutor{store: store, artifacts: artifacts, cfg: cfg, log: log}
}

// Name implements batch.Executor.
func (e *StatementExecutor) Name() string { return batch.JobStatementGeneration }

// Execute implements batch.Executor. Artifact creation and write errors
// are run-level; a single account with inconsistent data fails only that
// account's statement.
func (e *StatementExecutor) Execute(ctx context.Context, res *batch.Result, params batch.Params) error {
	start, end := defaultCycleWindow(params.CycleStart, params.CycleEnd, params.AsOf)

	accounts, err := e.store.ListActiveAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list active accounts: %w", err)
	}

	f, path, err := e.artifacts.Create(fmt.Sprintf("statements-%s-%s.jsonl", start, end))
	if err != nil {
		return err
	}
	defer f.Close()
	res.SetOutputPath(path)
	w := exchange.NewWriter(f)

	written := 0
	for _, acct := range accounts {
		stmt, err := e.buildStatement(ctx, acct, start, end)
		switch {
		case err == nil:
			if err := w.Write(exchange.TypeStatement, exchange.StatementToRecord(stmt)); err != nil {
				return err
			}
			written++
			res.RecordSuccess()
		case recordFault(err):
			res.RecordFailure(fmt.Sprintf("account %d: %v", acct.AccountID, err))
		default:
			return fmt.Errorf("build statement for account %d: %w", acct.AccountID, err)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close artifact %q: %w", path, err)
	}
	if err := e.artifacts.Publish(ctx, path); err != nil {
		return err
	}

	e.log.Debug().
		Str("job_id", res.JobID).
		Str("path", path).
		Int("statements", written).
		Msg("Statement pass finished")
	return nil
}

func (e *StatementExecutor) buildStatement(ctx context.Context, acct *domain.Account, start, end civil.Date) (*domain.Statement, error) {
	txs, err := e.store.ListAccountTransactionsInWindow(ctx, acct.AccountID, start, end)
	if err != nil {
		return nil, err
	}

	var payments, purchases, interest, net domain.Money
	lines := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Processed {
			// A statement over unposted activity would misstate the
			// balance; the account's statement is skipped, not the run.
			return nil, fmt.Errorf("%w: transaction %s in cycle window is unprocessed",
				domain.ErrInvalidRecord, tx.TransactionID)
		}
		net += tx.Amount
		switch {
		case tx.Type == domain.TypeInterest:
			interest += tx.Amount.Abs()
		case tx.Amount > 0:
			payments += tx.Amount
		case tx.Amount < 0:
			purchases += tx.Amount.Abs()
		}
		lines = append(lines, *tx)
	}

	stmt := &domain.Statement{
		AccountID:       acct.AccountID,
		CycleStart:      start,
		CycleEnd:        end,
		PreviousBalance: acct.CurrentBalance - net,
		Payments:        payments,
		Purchases:       purchases,
		InterestCharged: interest,
		NewBalance:      acct.CurrentBalance,
		DueDate:         end.AddDays(e.cfg.GraceDays),
		Transactions:    lines,
	}
	stmt.MinimumPaymentDue = e.minimumPayment(stmt.NewBalance)
	return stmt, nil
}

// minimumPayment is the configured rate of a positive closing balance,
// raised to the floor and capped at the balance itself. Zero or credit
// balances owe nothing.
func (e *StatementExecutor) minimumPayment(balance domain.Money) domain.Money {
	if balance <= 0 {
		return 0
	}
	min := domain.PercentOf(balance, e.cfg.MinPaymentBPS)
	if min < e.cfg.MinPaymentFloor {
		min = e.cfg.MinPaymentFloor
	}
	if min > balance {
		min = balance
	}
	return min
}

var _ batch.Executor = (*StatementExecutor)(nil)
