// Package exchange defines the versioned interchange format the statement
// and export/import executors read and write: JSON Lines, one enveloped
// record per line, self-describing enough to be re-imported without an
// external schema.
package exchange

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// FormatVersion is the current envelope version. Readers reject records
// from a newer format rather than guessing at their shape.
const FormatVersion = 1

// RecordType tags the payload carried by an envelope.
type RecordType string

const (
	TypeAccount     RecordType = "account"
	TypeCustomer    RecordType = "customer"
	TypeCard        RecordType = "card"
	TypeTransaction RecordType = "transaction"
	TypeStatement   RecordType = "statement"
)

var validate = validator.New()

// AccountRecord is the interchange form of a ledger account.
type AccountRecord struct {
	AccountID          int64      `json:"account_id" validate:"required"`
	CustomerID         int64      `json:"customer_id"`
	CurrentBalance     int64      `json:"current_balance"`
	CreditLimit        int64      `json:"credit_limit" validate:"gte=0"`
	CashCreditLimit    int64      `json:"cash_credit_limit" validate:"gte=0"`
	CurrentCycleCredit int64      `json:"current_cycle_credit" validate:"gte=0"`
	CurrentCycleDebit  int64      `json:"current_cycle_debit" validate:"gte=0"`
	AnnualRateBPS      int64      `json:"annual_rate_bps" validate:"gte=0,lte=10000"`
	ActiveStatus       string     `json:"active_status" validate:"required,oneof=Y N"`
	OpenDate           civil.Date `json:"open_date"`
	ExpiryDate         civil.Date `json:"expiry_date"`
}

// CustomerRecord is the interchange form of a customer.
type CustomerRecord struct {
	CustomerID int64  `json:"customer_id" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Address    string `json:"address"`
	FICOScore  int    `json:"fico_score" validate:"gte=0,lte=850"`
}

// CardRecord is the interchange form of a card. Its account reference is
// checked against the ledger on import, not here.
type CardRecord struct {
	CardNumber   string     `json:"card_number" validate:"required,numeric,min=13,max=19"`
	AccountID    int64      `json:"account_id" validate:"required"`
	CustomerID   int64      `json:"customer_id"`
	EmbossedName string     `json:"embossed_name"`
	ActiveStatus string     `json:"active_status" validate:"required,oneof=Y N"`
	ExpiryDate   civil.Date `json:"expiry_date"`
}

// TransactionRecord is the interchange form of a transaction. The legacy
// Y/N processed flag is kept on the wire.
type TransactionRecord struct {
	TransactionID string     `json:"transaction_id" validate:"required"`
	AccountID     int64      `json:"account_id" validate:"required"`
	CardNumber    string     `json:"card_number"`
	Amount        int64      `json:"amount"`
	Type          string     `json:"type" validate:"required"`
	Description   string     `json:"description"`
	Date          civil.Date `json:"date"`
	ProcessedFlag string     `json:"processed_flag" validate:"required,oneof=Y N"`
}

// Validate checks required fields and value ranges.
func (r *AccountRecord) Validate() error { return wrapInvalid(validate.Struct(r)) }

// Validate checks required fields and value ranges.
func (r *CustomerRecord) Validate() error { return wrapInvalid(validate.Struct(r)) }

// Validate checks required fields and value ranges.
func (r *CardRecord) Validate() error { return wrapInvalid(validate.Struct(r)) }

// Validate checks required fields and value ranges.
func (r *TransactionRecord) Validate() error { return wrapInvalid(validate.Struct(r)) }

func wrapInvalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// AccountToRecord converts a domain account for export.
func AccountToRecord(a *domain.Account) *AccountRecord {
	return &AccountRecord{
		AccountID:          a.AccountID,
		CustomerID:         a.CustomerID,
		CurrentBalance:     int64(a.CurrentBalance),
		CreditLimit:        int64(a.CreditLimit),
		CashCreditLimit:    int64(a.CashCreditLimit),
		CurrentCycleCredit: int64(a.CurrentCycleCredit),
		CurrentCycleDebit:  int64(a.CurrentCycleDebit),
		AnnualRateBPS:      a.AnnualRateBPS,
		ActiveStatus:       flag(a.ActiveStatus),
		OpenDate:           a.OpenDate,
		ExpiryDate:         a.ExpiryDate,
	}
}

// ToDomain converts an imported account record.
func (r *AccountRecord) ToDomain() *domain.Account {
	return &domain.Account{
		AccountID:          r.AccountID,
		CustomerID:         r.CustomerID,
		CurrentBalance:     domain.Money(r.CurrentBalance),
		CreditLimit:        domain.Money(r.CreditLimit),
		CashCreditLimit:    domain.Money(r.CashCreditLimit),
		CurrentCycleCredit: domain.Money(r.CurrentCycleCredit),
		CurrentCycleDebit:  domain.Money(r.CurrentCycleDebit),
		AnnualRateBPS:      r.AnnualRateBPS,
		ActiveStatus:       r.ActiveStatus == "Y",
		OpenDate:           r.OpenDate,
		ExpiryDate:         r.ExpiryDate,
	}
}

// CustomerToRecord converts a domain customer for export.
func CustomerToRecord(c *domain.Customer) *CustomerRecord {
	return &CustomerRecord{
		CustomerID: c.CustomerID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Address:    c.Address,
		FICOScore:  c.FICOScore,
	}
}

// ToDomain converts an imported customer record.
func (r *CustomerRecord) ToDomain() *domain.Customer {
	return &domain.Customer{
		CustomerID: r.CustomerID,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Address:    r.Address,
		FICOScore:  r.FICOScore,
	}
}

// CardToRecord converts a domain card for export.
func CardToRecord(c *domain.Card) *CardRecord {
	return &CardRecord{
		CardNumber:   c.CardNumber,
		AccountID:    c.AccountID,
		CustomerID:   c.CustomerID,
		EmbossedName: c.EmbossedName,
		ActiveStatus: flag(c.ActiveStatus),
		ExpiryDate:   c.ExpiryDate,
	}
}

// ToDomain converts an imported card record.
func (r *CardRecord) ToDomain() *domain.Card {
	return &domain.Card{
		CardNumber:   r.CardNumber,
		AccountID:    r.AccountID,
		CustomerID:   r.CustomerID,
		EmbossedName: r.EmbossedName,
		ActiveStatus: r.ActiveStatus == "Y",
		ExpiryDate:   r.ExpiryDate,
	}
}

// TransactionToRecord converts a domain transaction for export.
func TransactionToRecord(t *domain.Transaction) *TransactionRecord {
	return &TransactionRecord{
		TransactionID: t.TransactionID,
		AccountID:     t.AccountID,
		CardNumber:    t.CardNumber,
		Amount:        int64(t.Amount),
		Type:          string(t.Type),
		Description:   t.Description,
		Date:          t.Date,
		ProcessedFlag: flag(t.Processed),
	}
}

// ToDomain converts an imported transaction record.
func (r *TransactionRecord) ToDomain() *domain.Transaction {
	return &domain.Transaction{
		TransactionID: r.TransactionID,
		AccountID:     r.AccountID,
		CardNumber:    r.CardNumber,
		Amount:        domain.Money(r.Amount),
		Type:          domain.TransactionType(r.Type),
		Description:   r.Description,
		Date:          r.Date,
		Processed:     r.ProcessedFlag == "Y",
	}
}
