// Package analytics streams export snapshots to BigQuery so downstream
// reporting can query account and transaction state without touching the
// operational ledger. The sink is optional; runs work identically without
// it.
package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// AccountSnapshotRow mirrors one exported account into the analytics
// dataset, stamped with the run that produced it.
type AccountSnapshotRow struct {
	RunID              string    `bigquery:"run_id"`
	AccountID          int64     `bigquery:"account_id"`
	CustomerID         int64     `bigquery:"customer_id"`
	CurrentBalance     int64     `bigquery:"current_balance"`
	CreditLimit        int64     `bigquery:"credit_limit"`
	CurrentCycleCredit int64     `bigquery:"current_cycle_credit"`
	CurrentCycleDebit  int64     `bigquery:"current_cycle_debit"`
	ActiveStatus       bool      `bigquery:"active_status"`
	ExportedTS         time.Time `bigquery:"exported_ts"`
}

// TransactionSnapshotRow mirrors one exported transaction.
type TransactionSnapshotRow struct {
	RunID         string    `bigquery:"run_id"`
	TransactionID string    `bigquery:"transaction_id"`
	AccountID     int64     `bigquery:"account_id"`
	Amount        int64     `bigquery:"amount"`
	Type          string    `bigquery:"type"`
	Date          time.Time `bigquery:"date"`
	Processed     bool      `bigquery:"processed"`
	ExportedTS    time.Time `bigquery:"exported_ts"`
}

// Sink writes snapshot rows through a shared BigQuery client.
type Sink struct {
	client  *bigquery.Client
	dataset string
}

// NewSink creates a sink for the given project and dataset.
func NewSink(ctx context.Context, projectID, dataset string) (*Sink, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewSink: creating client: %w", err)
	}
	return &Sink{client: client, dataset: dataset}, nil
}

// Close releases the underlying client.
func (s *Sink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// InsertAccountSnapshots streams exported accounts for one run.
func (s *Sink) InsertAccountSnapshots(ctx context.Context, runID string, accounts []*domain.Account) error {
	now := time.Now().UTC()
	rows := make([]*AccountSnapshotRow, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, &AccountSnapshotRow{
			RunID:              runID,
			AccountID:          a.AccountID,
			CustomerID:         a.CustomerID,
			CurrentBalance:     int64(a.CurrentBalance),
			CreditLimit:        int64(a.CreditLimit),
			CurrentCycleCredit: int64(a.CurrentCycleCredit),
			CurrentCycleDebit:  int64(a.CurrentCycleDebit),
			ActiveStatus:       a.ActiveStatus,
			ExportedTS:         now,
		})
	}
	inserter := s.client.Dataset(s.dataset).Table("account_snapshots").Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertAccountSnapshots: inserting rows: %w", err)
	}
	return nil
}

// InsertTransactionSnapshots streams exported transactions for one run.
func (s *Sink) InsertTransactionSnapshots(ctx context.Context, runID string, txs []*domain.Transaction) error {
	now := time.Now().UTC()
	rows := make([]*TransactionSnapshotRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, &TransactionSnapshotRow{
			RunID:         runID,
			TransactionID: t.TransactionID,
			AccountID:     t.AccountID,
			Amount:        int64(t.Amount),
			Type:          string(t.Type),
			Date:          t.Date.In(time.UTC),
			Processed:     t.Processed,
			ExportedTS:    now,
		})
	}
	inserter := s.client.Dataset(s.dataset).Table("transaction_snapshots").Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactionSnapshots: inserting rows: %w", err)
	}
	return nil
}

// SnapshotCount returns how many account snapshot rows a run produced.
// Streaming inserts land with a short delay, so this is a reconciliation
// helper rather than an immediate read-back.
func (s *Sink) SnapshotCount(ctx context.Context, runID string) (int64, error) {
	q := s.client.Query(fmt.Sprintf(
		"SELECT COUNT(*) AS n FROM `%s.account_snapshots` WHERE run_id = @run_id", s.dataset))
	q.Parameters = []bigquery.QueryParameter{{Name: "run_id", Value: runID}}

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("SnapshotCount: reading query: %w", err)
	}
	var row struct {
		N int64 `bigquery:"n"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("SnapshotCount: iterating: %w", err)
	}
	return row.N, nil
}
