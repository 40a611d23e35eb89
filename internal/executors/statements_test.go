package executors

import (
	"context"
	"io"
	"os"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/artifact"
	"github.com/dvloznov/cardcycle/internal/batch"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/exchange"
	"github.com/dvloznov/cardcycle/internal/ledger/inmemory"
)

var augustWindow = batch.Params{
	CycleStart: civil.Date{Year: 2025, Month: 8, Day: 1},
	CycleEnd:   civil.Date{Year: 2025, Month: 8, Day: 31},
}

func statementFixture(t *testing.T) (*inmemory.Store, *StatementExecutor) {
	t.Helper()
	store := inmemory.NewStore()
	exec := NewStatementExecutor(store, artifact.NewStore(t.TempDir(), ""), StatementConfig{
		MinPaymentBPS:   200,  // 2%
		MinPaymentFloor: 2500, // $25.00
		GraceDays:       21,
	}, zerolog.Nop())
	return store, exec
}

func readStatements(t *testing.T, path string) []exchange.StatementRecord {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open artifact failed: %v", err)
	}
	defer f.Close()

	var out []exchange.StatementRecord
	r := exchange.NewReader(f)
	for {
		env, _, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read artifact failed: %v", err)
		}
		if env.Type != exchange.TypeStatement {
			t.Fatalf("Expected statement envelope, got %q", env.Type)
		}
		var rec exchange.StatementRecord
		if err := exchange.DecodeInto(env, &rec); err != nil {
			t.Fatalf("decode statement failed: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func TestStatementGeneration(t *testing.T) {
	ctx := context.Background()
	store, exec := statementFixture(t)

	// Balance after the cycle's activity: started at 200.00, paid 50.00,
	// spent 100.00, charged 20.00 interest.
	err := store.UpsertAccount(ctx, &domain.Account{
		AccountID:      1001,
		CurrentBalance: 13000,
		AnnualRateBPS:  2400,
		ActiveStatus:   true,
	})
	if err != nil {
		t.Fatalf("UpsertAccount failed: %v", err)
	}
	seed := []*domain.Transaction{
		{TransactionID: "T1", AccountID: 1001, Amount: 5000, Type: domain.TypePayment, Date: civil.Date{Year: 2025, Month: 8, Day: 5}, Processed: true},
		{TransactionID: "T2", AccountID: 1001, Amount: -10000, Type: domain.TypePurchase, Date: civil.Date{Year: 2025, Month: 8, Day: 12}, Processed: true},
		{TransactionID: "T3", AccountID: 1001, Amount: -2000, Type: domain.TypeInterest, Date: civil.Date{Year: 2025, Month: 8, Day: 31}, Processed: true},
		// Outside the window: must not appear on the statement.
		{TransactionID: "T0", AccountID: 1001, Amount: -9999, Type: domain.TypePurchase, Date: civil.Date{Year: 2025, Month: 7, Day: 20}, Processed: true},
	}
	for _, tx := range seed {
		if err := store.UpsertTransaction(ctx, tx); err != nil {
			t.Fatalf("UpsertTransaction failed: %v", err)
		}
	}

	res := batch.Start(batch.JobStatementGeneration)
	if err := exec.Execute(ctx, res, augustWindow); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if res.RecordsProcessed != 1 || res.RecordsFailed != 0 {
		t.Fatalf("Expected 1 processed / 0 failed, got %d / %d", res.RecordsProcessed, res.RecordsFailed)
	}
	if res.OutputFilePath == "" {
		t.Fatal("Expected an output path on the result")
	}

	stmts := readStatements(t, res.OutputFilePath)
	if len(stmts) != 1 {
		t.Fatalf("Expected 1 statement, got %d", len(stmts))
	}
	s := stmts[0]

	if s.AccountID != 1001 {
		t.Errorf("Expected account 1001, got %d", s.AccountID)
	}
	if s.NewBalance != 13000 {
		t.Errorf("Expected new balance 13000, got %d", s.NewBalance)
	}
	// Net window effect is 5000-10000-2000 = -7000, so the cycle opened at
	// 13000-(-7000) = 20000.
	if s.PreviousBalance != 20000 {
		t.Errorf("Expected previous balance 20000, got %d", s.PreviousBalance)
	}
	if s.Payments != 5000 {
		t.Errorf("Expected payments 5000, got %d", s.Payments)
	}
	if s.Purchases != 10000 {
		t.Errorf("Expected purchases 10000, got %d", s.Purchases)
	}
	if s.InterestCharged != 2000 {
		t.Errorf("Expected interest 2000, got %d", s.InterestCharged)
	}
	// 2% of 130.00 is 2.60, below the 25.00 floor.
	if s.MinimumPaymentDue != 2500 {
		t.Errorf("Expected minimum payment 2500, got %d", s.MinimumPaymentDue)
	}
	want := civil.Date{Year: 2025, Month: 9, Day: 21}
	if s.DueDate != want {
		t.Errorf("Expected due date %v, got %v", want, s.DueDate)
	}
	if len(s.Transactions) != 3 {
		t.Errorf("Expected 3 transactions on the statement, got %d", len(s.Transactions))
	}
}

func TestStatementMinimumPayment(t *testing.T) {
	_, exec := statementFixture(t)

	tests := []struct {
		name    string
		balance domain.Money
		want    domain.Money
	}{
		{"credit balance owes nothing", -5000, 0},
		{"zero balance owes nothing", 0, 0},
		{"percentage above floor", 500000, 10000}, // 2% of 5000.00
		{"floor applies", 10000, 2500},
		{"capped at balance", 1000, 1000}, // floor exceeds the balance
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exec.minimumPayment(tt.balance); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestStatementSkipsAccountWithUnpostedActivity(t *testing.T) {
	ctx := context.Background()
	store, exec := statementFixture(t)

	err := store.UpsertAccount(ctx, &domain.Account{AccountID: 1001, CurrentBalance: 1000, ActiveStatus: true})
	if err != nil {
		t.Fatalf("UpsertAccount failed: %v", err)
	}
	err = store.UpsertAccount(ctx, &domain.Account{AccountID: 1002, CurrentBalance: 2000, ActiveStatus: true})
	if err != nil {
		t.Fatalf("UpsertAccount failed: %v", err)
	}
	// 1001 has an unposted transaction in the window; 1002 is clean.
	err = store.UpsertTransaction(ctx, &domain.Transaction{
		TransactionID: "T1", AccountID: 1001, Amount: -500,
		Type: domain.TypePurchase, Date: civil.Date{Year: 2025, Month: 8, Day: 10},
	})
	if err != nil {
		t.Fatalf("UpsertTransaction failed: %v", err)
	}

	res := batch.Start(batch.JobStatementGeneration)
	if err := exec.Execute(ctx, res, augustWindow); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if res.RecordsSucceeded != 1 || res.RecordsFailed != 1 {
		t.Fatalf("Expected 1 succeeded / 1 failed, got %d / %d", res.RecordsSucceeded, res.RecordsFailed)
	}

	stmts := readStatements(t, res.OutputFilePath)
	if len(stmts) != 1 || stmts[0].AccountID != 1002 {
		t.Errorf("Expected only account 1002's statement in the artifact, got %+v", stmts)
	}
}

func TestStatementDefaultWindowIsAsOfMonth(t *testing.T) {
	start, end := defaultCycleWindow(civil.Date{}, civil.Date{}, civil.Date{Year: 2025, Month: 2, Day: 10})
	if (start != civil.Date{Year: 2025, Month: 2, Day: 1}) {
		t.Errorf("Expected window start 2025-02-01, got %v", start)
	}
	if (end != civil.Date{Year: 2025, Month: 2, Day: 28}) {
		t.Errorf("Expected window end 2025-02-28, got %v", end)
	}
}
