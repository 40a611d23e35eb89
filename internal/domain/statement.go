package domain

import "cloud.google.com/go/civil"

// Statement is the per-account billing snapshot produced by the statement
// executor for one cycle. It is created fresh each statement run and never
// mutated afterward; the engine writes it to the run artifact but does not
// persist it in the ledger store.
type Statement struct {
	AccountID         int64         `json:"account_id"`
	CycleStart        civil.Date    `json:"cycle_start"`
	CycleEnd          civil.Date    `json:"cycle_end"`
	PreviousBalance   Money         `json:"previous_balance"`
	Payments          Money         `json:"payments"`
	Purchases         Money         `json:"purchases"`
	InterestCharged   Money         `json:"interest_charged"`
	NewBalance        Money         `json:"new_balance"`
	MinimumPaymentDue Money         `json:"minimum_payment_due"`
	DueDate           civil.Date    `json:"due_date"`
	Transactions      []Transaction `json:"transactions"`
}
