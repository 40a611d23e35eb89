package mysqlstore

import (
	"time"

	"cloud.google.com/go/civil"
	"gorm.io/gorm"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// accountRow maps the accounts table.
type accountRow struct {
	AccountID          int64     `gorm:"primaryKey;column:account_id"`
	CustomerID         int64     `gorm:"column:customer_id;index"`
	CurrentBalance     int64     `gorm:"column:current_balance"`
	CreditLimit        int64     `gorm:"column:credit_limit"`
	CashCreditLimit    int64     `gorm:"column:cash_credit_limit"`
	CurrentCycleCredit int64     `gorm:"column:current_cycle_credit"`
	CurrentCycleDebit  int64     `gorm:"column:current_cycle_debit"`
	AnnualRateBPS      int64     `gorm:"column:annual_rate_bps"`
	ActiveStatus       bool      `gorm:"column:active_status;index"`
	OpenDate           time.Time `gorm:"column:open_date"`
	ExpiryDate         time.Time `gorm:"column:expiry_date"`
	UpdatedAt          int64     `gorm:"autoUpdateTime:milli"`
}

func (*accountRow) TableName() string { return "accounts" }

// transactionRow maps the transactions table. Processed keeps the legacy
// Y/N flag values so the table remains readable next to the mainframe
// extracts it replaced.
type transactionRow struct {
	TransactionID string    `gorm:"primaryKey;column:transaction_id;size:26"`
	AccountID     int64     `gorm:"column:account_id;index"`
	CardNumber    string    `gorm:"column:card_number;size:19"`
	Amount        int64     `gorm:"column:amount"`
	Type          string    `gorm:"column:type;size:16"`
	Description   string    `gorm:"column:description;size:120"`
	Date          time.Time `gorm:"column:date;index:idx_tx_order,priority:1"`
	Processed     string    `gorm:"column:processed;size:1;index"`
	CreatedAt     int64     `gorm:"autoCreateTime:milli"`
}

func (*transactionRow) TableName() string { return "transactions" }

// customerRow maps the customers table.
type customerRow struct {
	CustomerID int64  `gorm:"primaryKey;column:customer_id"`
	FirstName  string `gorm:"column:first_name;size:60"`
	LastName   string `gorm:"column:last_name;size:60"`
	Address    string `gorm:"column:address;size:200"`
	FICOScore  int    `gorm:"column:fico_score"`
	UpdatedAt  int64  `gorm:"autoUpdateTime:milli"`
}

func (*customerRow) TableName() string { return "customers" }

// cardRow maps the cards table.
type cardRow struct {
	CardNumber   string    `gorm:"primaryKey;column:card_number;size:19"`
	AccountID    int64     `gorm:"column:account_id;index"`
	CustomerID   int64     `gorm:"column:customer_id;index"`
	EmbossedName string    `gorm:"column:embossed_name;size:60"`
	ActiveStatus bool      `gorm:"column:active_status"`
	ExpiryDate   time.Time `gorm:"column:expiry_date"`
	UpdatedAt    int64     `gorm:"autoUpdateTime:milli"`
}

func (*cardRow) TableName() string { return "cards" }

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&accountRow{}, &transactionRow{}, &customerRow{}, &cardRow{})
}

const processedYes, processedNo = "Y", "N"

func dateToTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func timeToDate(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}

func accountToRow(a *domain.Account) *accountRow {
	return &accountRow{
		AccountID:          a.AccountID,
		CustomerID:         a.CustomerID,
		CurrentBalance:     int64(a.CurrentBalance),
		CreditLimit:        int64(a.CreditLimit),
		CashCreditLimit:    int64(a.CashCreditLimit),
		CurrentCycleCredit: int64(a.CurrentCycleCredit),
		CurrentCycleDebit:  int64(a.CurrentCycleDebit),
		AnnualRateBPS:      a.AnnualRateBPS,
		ActiveStatus:       a.ActiveStatus,
		OpenDate:           dateToTime(a.OpenDate),
		ExpiryDate:         dateToTime(a.ExpiryDate),
	}
}

func rowToAccount(r *accountRow) *domain.Account {
	return &domain.Account{
		AccountID:          r.AccountID,
		CustomerID:         r.CustomerID,
		CurrentBalance:     domain.Money(r.CurrentBalance),
		CreditLimit:        domain.Money(r.CreditLimit),
		CashCreditLimit:    domain.Money(r.CashCreditLimit),
		CurrentCycleCredit: domain.Money(r.CurrentCycleCredit),
		CurrentCycleDebit:  domain.Money(r.CurrentCycleDebit),
		AnnualRateBPS:      r.AnnualRateBPS,
		ActiveStatus:       r.ActiveStatus,
		OpenDate:           timeToDate(r.OpenDate),
		ExpiryDate:         timeToDate(r.ExpiryDate),
	}
}

func transactionToRow(t *domain.Transaction) *transactionRow {
	processed := processedNo
	if t.Processed {
		processed = processedYes
	}
	return &transactionRow{
		TransactionID: t.TransactionID,
		AccountID:     t.AccountID,
		CardNumber:    t.CardNumber,
		Amount:        int64(t.Amount),
		Type:          string(t.Type),
		Description:   t.Description,
		Date:          dateToTime(t.Date),
		Processed:     processed,
	}
}

func rowToTransaction(r *transactionRow) *domain.Transaction {
	return &domain.Transaction{
		TransactionID: r.TransactionID,
		AccountID:     r.AccountID,
		CardNumber:    r.CardNumber,
		Amount:        domain.Money(r.Amount),
		Type:          domain.TransactionType(r.Type),
		Description:   r.Description,
		Date:          timeToDate(r.Date),
		Processed:     r.Processed == processedYes,
	}
}

func customerToRow(c *domain.Customer) *customerRow {
	return &customerRow{
		CustomerID: c.CustomerID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Address:    c.Address,
		FICOScore:  c.FICOScore,
	}
}

func rowToCustomer(r *customerRow) *domain.Customer {
	return &domain.Customer{
		CustomerID: r.CustomerID,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Address:    r.Address,
		FICOScore:  r.FICOScore,
	}
}

func cardToRow(c *domain.Card) *cardRow {
	return &cardRow{
		CardNumber:   c.CardNumber,
		AccountID:    c.AccountID,
		CustomerID:   c.CustomerID,
		EmbossedName: c.EmbossedName,
		ActiveStatus: c.ActiveStatus,
		ExpiryDate:   dateToTime(c.ExpiryDate),
	}
}

func rowToCard(r *cardRow) *domain.Card {
	return &domain.Card{
		CardNumber:   r.CardNumber,
		AccountID:    r.AccountID,
		CustomerID:   r.CustomerID,
		EmbossedName: r.EmbossedName,
		ActiveStatus: r.ActiveStatus,
		ExpiryDate:   timeToDate(r.ExpiryDate),
	}
}
