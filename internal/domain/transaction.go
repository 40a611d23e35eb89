package domain

import "cloud.google.com/go/civil"

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	// TypePurchase is a merchant purchase (debit).
	TypePurchase TransactionType = "PURCHASE"
	// TypePayment is a cardholder payment (credit).
	TypePayment TransactionType = "PAYMENT"
	// TypeCashAdvance is a cash withdrawal (debit).
	TypeCashAdvance TransactionType = "CASH_ADVANCE"
	// TypeFee is a service fee (debit).
	TypeFee TransactionType = "FEE"
	// TypeInterest marks interest synthesized by the interest executor.
	TypeInterest TransactionType = "INTEREST"
)

// Transaction is one signed ledger movement. Amounts are credit positive,
// debit negative. A processed transaction is already reflected in its
// account's balance; the posting executor's sole job is to make that true
// for every unprocessed transaction exactly once.
type Transaction struct {
	// TransactionID is a ULID: unique, and lexicographically increasing in
	// generation order, which keeps (Date, TransactionID) a stable,
	// reproducible posting order across re-runs.
	TransactionID string          `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	CardNumber    string          `json:"card_number"`
	Amount        Money           `json:"amount"`
	Type          TransactionType `json:"type"`
	Description   string          `json:"description"`
	Date          civil.Date      `json:"date"`
	Processed     bool            `json:"processed"`
}
