package domain

import "cloud.google.com/go/civil"

// Account is one credit-card account ledger entry. CurrentBalance is the
// authoritative running total: every posted transaction amount is reflected
// in it exactly once.
type Account struct {
	AccountID          int64      `json:"account_id"`
	CustomerID         int64      `json:"customer_id"`
	CurrentBalance     Money      `json:"current_balance"`
	CreditLimit        Money      `json:"credit_limit"`
	CashCreditLimit    Money      `json:"cash_credit_limit"`
	CurrentCycleCredit Money      `json:"current_cycle_credit"`
	CurrentCycleDebit  Money      `json:"current_cycle_debit"`
	AnnualRateBPS      int64      `json:"annual_rate_bps"`
	ActiveStatus       bool       `json:"active_status"`
	OpenDate           civil.Date `json:"open_date"`
	ExpiryDate         civil.Date `json:"expiry_date"`
}

// Apply posts a signed amount to the running balance and routes it into the
// cycle totals: credits (positive) accumulate in CurrentCycleCredit, debits
// (negative) in CurrentCycleDebit as an absolute value.
func (a *Account) Apply(amount Money) {
	a.CurrentBalance += amount
	if amount > 0 {
		a.CurrentCycleCredit += amount
	} else {
		a.CurrentCycleDebit += -amount
	}
}

// Card is a plastic issued against an account. The batch engine only reads
// and bulk-exchanges cards; card lifecycle belongs to the admin application.
type Card struct {
	CardNumber   string     `json:"card_number"`
	AccountID    int64      `json:"account_id"`
	CustomerID   int64      `json:"customer_id"`
	EmbossedName string     `json:"embossed_name"`
	ActiveStatus bool       `json:"active_status"`
	ExpiryDate   civil.Date `json:"expiry_date"`
}

// Customer is the card holder record carried by the export/import executor.
type Customer struct {
	CustomerID int64  `json:"customer_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	FICOScore  int    `json:"fico_score"`
}
