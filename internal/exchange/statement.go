package exchange

import (
	"cloud.google.com/go/civil"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// StatementRecord is the interchange form of a cycle statement. It is
// export-only today; import skips statement lines because statements are
// derived, not source data.
type StatementRecord struct {
	AccountID         int64               `json:"account_id" validate:"required"`
	CycleStart        civil.Date          `json:"cycle_start"`
	CycleEnd          civil.Date          `json:"cycle_end"`
	PreviousBalance   int64               `json:"previous_balance"`
	Payments          int64               `json:"payments"`
	Purchases         int64               `json:"purchases"`
	InterestCharged   int64               `json:"interest_charged"`
	NewBalance        int64               `json:"new_balance"`
	MinimumPaymentDue int64               `json:"minimum_payment_due"`
	DueDate           civil.Date          `json:"due_date"`
	Transactions      []TransactionRecord `json:"transactions,omitempty"`
}

// StatementToRecord converts a domain statement for export.
func StatementToRecord(s *domain.Statement) *StatementRecord {
	rec := &StatementRecord{
		AccountID:         s.AccountID,
		CycleStart:        s.CycleStart,
		CycleEnd:          s.CycleEnd,
		PreviousBalance:   int64(s.PreviousBalance),
		Payments:          int64(s.Payments),
		Purchases:         int64(s.Purchases),
		InterestCharged:   int64(s.InterestCharged),
		NewBalance:        int64(s.NewBalance),
		MinimumPaymentDue: int64(s.MinimumPaymentDue),
		DueDate:           s.DueDate,
	}
	for i := range s.Transactions {
		rec.Transactions = append(rec.Transactions, *TransactionToRecord(&s.Transactions[i]))
	}
	return rec
}
