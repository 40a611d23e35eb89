package executors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/analytics"
	"github.com/dvloznov/cardcycle/internal/artifact"
	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/exchange"
	"github.com/dvloznov/cardcycle/internal/ledger"
)

// Modes accepted by the data export/import job. An empty mode exports.
const (
	ModeExport = "export"
	ModeImport = "import"
)

// analyticsMirror is the sink surface the export pass uses.
type analyticsMirror interface {
	InsertAccountSnapshots(ctx context.Context, runID string, accounts []*domain.Account) error
	InsertTransactionSnapshots(ctx context.Context, runID string, txs []*domain.Transaction) error
	SnapshotCount(ctx context.Context, runID string) (int64, error)
}

// ExportImportExecutor moves ledger data across the system boundary in the
// versioned JSONL interchange format. Export never mutates the store;
// import upserts record by record and is deliberately not atomic across
// the file, so one bad line costs one record, not the batch.
type ExportImportExecutor struct {
	store     ledger.Store
	artifacts *artifact.Store
	sink      analyticsMirror // nil disables the BigQuery mirror
	log       zerolog.Logger
}

// NewExportImportExecutor builds the export/import executor. sink may be
// nil.
func NewExportImportExecutor(store ledger.Store, artifacts *artifact.Store, sink *analytics.Sink, log zerolog.Logger) *ExportImportExecutor {
	e := &ExportImportExecutor{store: store, artifacts: artifacts, log: log}
	if sink != nil {
		e.sink = sink
	}
	return e
}

// Name implements batch.Executor.
func (e *ExportImportExecutor) Name() string { return batch.JobDataExportImport }

// Execute implements batch.Executor.
func (e *ExportImportExecutor) Execute(ctx context.Context, res *batch.Result, params batch.Params) error {
	switch params.Mode {
	case ModeExport, "":
		return e.export(ctx, res)
	case ModeImport:
		return e.importFile(ctx, res, params.InputPath)
	default:
		return fmt.Errorf("unknown mode %q", params.Mode)
	}
}

func (e *ExportImportExecutor) export(ctx context.Context, res *batch.Result) error {
	accounts, err := e.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	customers, err := e.store.ListCustomers(ctx)
	if err != nil {
		return fmt.Errorf("list customers: %w", err)
	}
	cards, err := e.store.ListCards(ctx)
	if err != nil {
		return fmt.Errorf("list cards: %w", err)
	}
	txs, err := e.store.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	f, path, err := e.artifacts.Create(fmt.Sprintf("export-%s.jsonl", time.Now().UTC().Format("20060102-150405")))
	if err != nil {
		return err
	}
	defer f.Close()
	res.SetOutputPath(path)
	w := exchange.NewWriter(f)

	for _, a := range accounts {
		if err := w.Write(exchange.TypeAccount, exchange.AccountToRecord(a)); err != nil {
			return err
		}
		res.RecordSuccess()
	}
	for _, c := range customers {
		if err := w.Write(exchange.TypeCustomer, exchange.CustomerToRecord(c)); err != nil {
			return err
		}
		res.RecordSuccess()
	}
	for _, c := range cards {
		if err := w.Write(exchange.TypeCard, exchange.CardToRecord(c)); err != nil {
			return err
		}
		res.RecordSuccess()
	}
	for _, t := range txs {
		if err := w.Write(exchange.TypeTransaction, exchange.TransactionToRecord(t)); err != nil {
			return err
		}
		res.RecordSuccess()
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close artifact %q: %w", path, err)
	}
	if err := e.artifacts.Publish(ctx, path); err != nil {
		return err
	}

	// The analytics mirror is best effort: reporting lag must not fail an
	// otherwise good export.
	if e.sink != nil {
		if err := e.sink.InsertAccountSnapshots(ctx, res.JobID, accounts); err != nil {
			e.log.Warn().Err(err).Str("job_id", res.JobID).Msg("Account snapshot mirror failed")
		}
		if err := e.sink.InsertTransactionSnapshots(ctx, res.JobID, txs); err != nil {
			e.log.Warn().Err(err).Str("job_id", res.JobID).Msg("Transaction snapshot mirror failed")
		}
		// Streaming inserts land with a delay, so a short count only means
		// the mirror is lagging, not lost.
		if n, err := e.sink.SnapshotCount(ctx, res.JobID); err != nil {
			e.log.Warn().Err(err).Str("job_id", res.JobID).Msg("Snapshot reconciliation failed")
		} else if n != int64(len(accounts)) {
			e.log.Info().
				Str("job_id", res.JobID).
				Int64("mirrored", n).
				Int("exported", len(accounts)).
				Msg("Account snapshot mirror lagging")
		}
	}

	e.log.Debug().
		Str("job_id", res.JobID).
		Str("path", path).
		Int("records", len(accounts)+len(customers)+len(cards)+len(txs)).
		Msg("Export pass finished")
	return nil
}

func (e *ExportImportExecutor) importFile(ctx context.Context, res *batch.Result, inputPath string) error {
	if inputPath == "" {
		return errors.New("import mode requires an input path")
	}
	rc, err := e.artifacts.Open(ctx, inputPath)
	if err != nil {
		return err
	}
	defer rc.Close()

	r := exchange.NewReader(rc)
	for {
		env, line, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if recordFault(err) {
				res.RecordFailure(err.Error())
				continue
			}
			return err
		}
		if err := e.importRecord(ctx, env); err != nil {
			if recordFault(err) {
				res.RecordFailure(fmt.Sprintf("line %d: %v", line, err))
				continue
			}
			return fmt.Errorf("import line %d: %w", line, err)
		}
		res.RecordSuccess()
	}

	e.log.Debug().
		Str("job_id", res.JobID).
		Str("path", inputPath).
		Msg("Import pass finished")
	return nil
}

func (e *ExportImportExecutor) importRecord(ctx context.Context, env *exchange.Envelope) error {
	switch env.Type {
	case exchange.TypeAccount:
		var rec exchange.AccountRecord
		if err := exchange.DecodeInto(env, &rec); err != nil {
			return err
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		return e.store.UpsertAccount(ctx, rec.ToDomain())

	case exchange.TypeCustomer:
		var rec exchange.CustomerRecord
		if err := exchange.DecodeInto(env, &rec); err != nil {
			return err
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		return e.store.UpsertCustomer(ctx, rec.ToDomain())

	case exchange.TypeCard:
		var rec exchange.CardRecord
		if err := exchange.DecodeInto(env, &rec); err != nil {
			return err
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		return e.store.UpsertCard(ctx, rec.ToDomain())

	case exchange.TypeTransaction:
		var rec exchange.TransactionRecord
		if err := exchange.DecodeInto(env, &rec); err != nil {
			return err
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		if _, err := e.store.GetAccount(ctx, rec.AccountID); err != nil {
			return err
		}
		return e.store.UpsertTransaction(ctx, rec.ToDomain())

	case exchange.TypeStatement:
		// Statements are derived output, never source data.
		return fmt.Errorf("%w: statement records are not importable", domain.ErrInvalidRecord)

	default:
		return fmt.Errorf("%w: unknown record type %q", domain.ErrInvalidRecord, env.Type)
	}
}

var _ batch.Executor = (*ExportImportExecutor)(nil)
