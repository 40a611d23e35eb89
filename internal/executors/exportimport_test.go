package executors

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/artifact"
	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/ledger/inmemory"
)

func exportImportFixture(t *testing.T) (*inmemory.Store, *ExportImportExecutor) {
	t.Helper()
	store := inmemory.NewStore()
	exec := NewExportImportExecutor(store, artifact.NewStore(t.TempDir(), ""), nil, zerolog.Nop())
	return store, exec
}

func TestExportImportRoundtrip(t *testing.T) {
	ctx := context.Background()
	source, exportExec := exportImportFixture(t)

	err := source.UpsertCustomer(ctx, &domain.Customer{CustomerID: 1, FirstName: "Ada", LastName: "Hopper", FICOScore: 720})
	if err != nil {
		t.Fatalf("UpsertCustomer failed: %v", err)
	}
	err = source.UpsertAccount(ctx, &domain.Account{
		AccountID:      1001,
		CustomerID:     1,
		CurrentBalance: 13000,
		CreditLimit:    500000,
		AnnualRateBPS:  2400,
		ActiveStatus:   true,
		OpenDate:       civil.Date{Year: 2024, Month: 1, Day: 15},
	})
	if err != nil {
		t.Fatalf("UpsertAccount failed: %v", err)
	}
	err = source.UpsertCard(ctx, &domain.Card{
		CardNumber: "4111111111111111", AccountID: 1001, CustomerID: 1,
		EmbossedName: "ADA HOPPER", ActiveStatus: true,
	})
	if err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}
	err = source.UpsertTransaction(ctx, &domain.Transaction{
		TransactionID: "T1", AccountID: 1001, CardNumber: "4111111111111111",
		Amount: -2000, Type: domain.TypePurchase,
		Date: civil.Date{Year: 2025, Month: 8, Day: 5}, Processed: true,
	})
	if err != nil {
		t.Fatalf("UpsertTransaction failed: %v", err)
	}

	exportRes := batch.Start(batch.JobDataExportImport)
	if err := exportExec.Execute(ctx, exportRes, batch.Params{Mode: ModeExport}); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if exportRes.RecordsProcessed != 4 || exportRes.RecordsFailed != 0 {
		t.Fatalf("Expected 4 exported / 0 failed, got %d / %d", exportRes.RecordsProcessed, exportRes.RecordsFailed)
	}
	if exportRes.OutputFilePath == "" {
		t.Fatal("Expected an output path on the export result")
	}

	// Import the artifact into a fresh store.
	target, importExec := exportImportFixture(t)
	importRes := batch.Start(batch.JobDataExportImport)
	err = importExec.Execute(ctx, importRes, batch.Params{Mode: ModeImport, InputPath: exportRes.OutputFilePath})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if importRes.RecordsProcessed != 4 || importRes.RecordsFailed != 0 {
		t.Fatalf("Expected 4 imported / 0 failed, got %d / %d: %v", importRes.RecordsProcessed, importRes.RecordsFailed, importRes.Errors)
	}

	acct, err := target.GetAccount(ctx, 1001)
	if err != nil {
		t.Fatalf("GetAccount after import failed: %v", err)
	}
	if acct.CurrentBalance != 13000 || !acct.ActiveStatus {
		t.Errorf("Account did not survive the roundtrip: %+v", acct)
	}
	txs, _ := target.ListTransactions(ctx)
	if len(txs) != 1 || !txs[0].Processed || txs[0].Amount != -2000 {
		t.Errorf("Transaction did not survive the roundtrip: %+v", txs)
	}
	cards, _ := target.ListCards(ctx)
	if len(cards) != 1 || cards[0].EmbossedName != "ADA HOPPER" {
		t.Errorf("Card did not survive the roundtrip: %+v", cards)
	}
}

// fakeMirror stands in for the BigQuery sink and records what the export
// pass hands it.
type fakeMirror struct {
	accountRunID  string
	accounts      int
	transactions  int
	countedRunID  string
	insertErr     error
	snapshotCount int64
}

func (m *fakeMirror) InsertAccountSnapshots(_ context.Context, runID string, accounts []*domain.Account) error {
	m.accountRunID = runID
	m.accounts = len(accounts)
	return m.insertErr
}

func (m *fakeMirror) InsertTransactionSnapshots(_ context.Context, _ string, txs []*domain.Transaction) error {
	m.transactions = len(txs)
	return m.insertErr
}

func (m *fakeMirror) SnapshotCount(_ context.Context, runID string) (int64, error) {
	m.countedRunID = runID
	return m.snapshotCount, nil
}

func TestExportMirrorsAndReconciles(t *testing.T) {
	ctx := context.Background()
	store, exec := exportImportFixture(t)
	mirror := &fakeMirror{snapshotCount: 1}
	exec.sink = mirror

	err := store.UpsertAccount(ctx, &domain.Account{AccountID: 1001, ActiveStatus: true})
	if err != nil {
		t.Fatalf("UpsertAccount failed: %v", err)
	}

	res := batch.Start(batch.JobDataExportImport)
	if err := exec.Execute(ctx, res, batch.Params{Mode: ModeExport}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if mirror.accounts != 1 {
		t.Errorf("Expected 1 account mirrored, got %d", mirror.accounts)
	}
	if mirror.accountRunID != res.JobID {
		t.Errorf("Expected mirror run id %q, got %q", res.JobID, mirror.accountRunID)
	}
	if mirror.countedRunID != res.JobID {
		t.Errorf("Expected reconciliation for run %q, got %q", res.JobID, mirror.countedRunID)
	}
}

func TestExportMirrorFailureDoesNotFailRun(t *testing.T) {
	ctx := context.Background()
	store, exec := exportImportFixture(t)
	exec.sink = &fakeMirror{insertErr: context.DeadlineExceeded}

	err := store.UpsertAccount(ctx, &domain.Account{AccountID: 1001, ActiveStatus: true})
	if err != nil {
		t.Fatalf("UpsertAccount failed: %v", err)
	}

	res := batch.Start(batch.JobDataExportImport)
	if err := exec.Execute(ctx, res, batch.Params{Mode: ModeExport}); err != nil {
		t.Fatalf("Expected mirror failure to stay best effort, got %v", err)
	}
	if res.RecordsFailed != 0 {
		t.Errorf("Expected 0 failed records, got %d", res.RecordsFailed)
	}
}

func TestImportIsolatesBadRecords(t *testing.T) {
	ctx := context.Background()
	store, exec := exportImportFixture(t)

	lines := []string{
		`{"v":1,"type":"account","data":{"account_id":1001,"active_status":"Y"}}`,
		`{garbage`, // malformed line
		`{"v":1,"type":"card","data":{"card_number":"4111111111111111","account_id":9999,"active_status":"Y"}}`,  // dangling account ref
		`{"v":1,"type":"transaction","data":{"transaction_id":"T1","account_id":9999,"type":"PURCHASE","processed_flag":"N"}}`, // dangling account ref
		`{"v":1,"type":"customer","data":{"customer_id":1,"first_name":"Ada"}}`, // fails validation
		`{"v":1,"type":"statement","data":{"account_id":1001}}`,                 // statements are not importable
		`{"v":1,"type":"transaction","data":{"transaction_id":"T2","account_id":1001,"amount":-500,"type":"PURCHASE","processed_flag":"N"}}`,
	}
	input := filepath.Join(t.TempDir(), "input.jsonl")
	if err := os.WriteFile(input, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write input failed: %v", err)
	}

	res := batch.Start(batch.JobDataExportImport)
	if err := exec.Execute(ctx, res, batch.Params{Mode: ModeImport, InputPath: input}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if res.RecordsSucceeded != 2 {
		t.Errorf("Expected 2 succeeded, got %d: %v", res.RecordsSucceeded, res.Errors)
	}
	if res.RecordsFailed != 5 {
		t.Errorf("Expected 5 failed, got %d: %v", res.RecordsFailed, res.Errors)
	}

	// The good records around the bad ones landed.
	if _, err := store.GetAccount(ctx, 1001); err != nil {
		t.Errorf("Expected account 1001 to be imported: %v", err)
	}
	txs, _ := store.ListTransactions(ctx)
	if len(txs) != 1 || txs[0].TransactionID != "T2" {
		t.Errorf("Expected only transaction T2 imported, got %+v", txs)
	}
	cards, _ := store.ListCards(ctx)
	if len(cards) != 0 {
		t.Errorf("Expected no cards imported, got %+v", cards)
	}
}

func TestImportRequiresInputPath(t *testing.T) {
	_, exec := exportImportFixture(t)

	res := batch.Start(batch.JobDataExportImport)
	if err := exec.Execute(context.Background(), res, batch.Params{Mode: ModeImport}); err == nil {
		t.Fatal("Expected a run-level error without an input path")
	}
}

func TestExportImportUnknownMode(t *testing.T) {
	_, exec := exportImportFixture(t)

	res := batch.Start(batch.JobDataExportImport)
	if err := exec.Execute(context.Background(), res, batch.Params{Mode: "sideways"}); err == nil {
		t.Fatal("Expected a run-level error for an unknown mode")
	}
}

func TestExportEmptyStore(t *testing.T) {
	_, exec := exportImportFixture(t)

	res := batch.Start(batch.JobDataExportImport)
	if err := exec.Execute(context.Background(), res, batch.Params{}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.RecordsProcessed != 0 {
		t.Errorf("Expected 0 records from an empty store, got %d", res.RecordsProcessed)
	}
	if res.OutputFilePath == "" {
		t.Error("Expected an artifact even for an empty export")
	}
}
