package mysqlstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/ledger"
)

// Store implements ledger.Store on MySQL.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open GORM handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetAccount implements ledger.Store.
func (s *Store) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	var row accountRow
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetAccount %d: %w", accountID, err)
	}
	return rowToAccount(&row), nil
}

// ListAccounts implements ledger.Store.
func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var rows []accountRow
	if err := s.db.WithContext(ctx).Order("account_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	out := make([]*domain.Account, len(rows))
	for i := range rows {
		out[i] = rowToAccount(&rows[i])
	}
	return out, nil
}

// ListActiveAccounts implements ledger.Store.
func (s *Store) ListActiveAccounts(ctx context.Context) ([]*domain.Account, error) {
	var rows []accountRow
	err := s.db.WithContext(ctx).
		Where("active_status = ?", true).
		Order("account_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ListActiveAccounts: %w", err)
	}
	out := make([]*domain.Account, len(rows))
	for i := range rows {
		out[i] = rowToAccount(&rows[i])
	}
	return out, nil
}

// UpsertAccount implements ledger.Store.
func (s *Store) UpsertAccount(ctx context.Context, acct *domain.Account) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(accountToRow(acct)).Error
	if err != nil {
		return fmt.Errorf("UpsertAccount %d: %w", acct.AccountID, err)
	}
	return nil
}

// ListUnprocessedTransactions implements ledger.Store.
func (s *Store) ListUnprocessedTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	var rows []transactionRow
	err := s.db.WithContext(ctx).
		Where("processed = ?", processedNo).
		Order("date, transaction_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ListUnprocessedTransactions: %w", err)
	}
	out := make([]*domain.Transaction, len(rows))
	for i := range rows {
		out[i] = rowToTransaction(&rows[i])
	}
	return out, nil
}

// ListTransactions implements ledger.Store.
func (s *Store) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	var rows []transactionRow
	err := s.db.WithContext(ctx).Order("date, transaction_id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	out := make([]*domain.Transaction, len(rows))
	for i := range rows {
		out[i] = rowToTransaction(&rows[i])
	}
	return out, nil
}

// ListAccountTransactionsInWindow implements ledger.Store.
func (s *Store) ListAccountTransactionsInWindow(ctx context.Context, accountID int64, start, end civil.Date) ([]*domain.Transaction, error) {
	var rows []transactionRow
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND date BETWEEN ? AND ?", accountID, dateToTime(start), dateToTime(end)).
		Order("date, transaction_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ListAccountTransactionsInWindow %d: %w", accountID, err)
	}
	out := make([]*domain.Transaction, len(rows))
	for i := range rows {
		out[i] = rowToTransaction(&rows[i])
	}
	return out, nil
}

// ApplyTransaction implements ledger.Store. The transaction and its account
// rows are locked FOR UPDATE so concurrent runs serialize per account; the
// balance change and the processed flag commit together or not at all.
func (s *Store) ApplyTransaction(ctx context.Context, transactionID string, mutate ledger.Mutation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txRow transactionRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ?", transactionID).
			First(&txRow).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("ApplyTransaction: load transaction %s: %w", transactionID, err)
		}
		if txRow.Processed == processedYes {
			// Already reflected in the balance; re-runs converge here.
			return nil
		}

		var acctRow accountRow
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ?", txRow.AccountID).
			First(&acctRow).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("ApplyTransaction: load account %d: %w", txRow.AccountID, err)
		}

		acct := rowToAccount(&acctRow)
		if err := mutate(acct); err != nil {
			return err
		}

		if err := tx.Save(accountToRow(acct)).Error; err != nil {
			return fmt.Errorf("ApplyTransaction: save account %d: %w", acct.AccountID, err)
		}
		err = tx.Model(&transactionRow{}).
			Where("transaction_id = ?", transactionID).
			Update("processed", processedYes).Error
		if err != nil {
			return fmt.Errorf("ApplyTransaction: flag transaction %s: %w", transactionID, err)
		}
		return nil
	})
}

// PostNewTransaction implements ledger.Store.
func (s *Store) PostNewTransaction(ctx context.Context, newTx *domain.Transaction, mutate ledger.Mutation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acctRow accountRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ?", newTx.AccountID).
			First(&acctRow).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("PostNewTransaction: load account %d: %w", newTx.AccountID, err)
		}

		acct := rowToAccount(&acctRow)
		if err := mutate(acct); err != nil {
			return err
		}

		if err := tx.Save(accountToRow(acct)).Error; err != nil {
			return fmt.Errorf("PostNewTransaction: save account %d: %w", acct.AccountID, err)
		}
		if err := tx.Create(transactionToRow(newTx)).Error; err != nil {
			return fmt.Errorf("PostNewTransaction: insert transaction %s: %w", newTx.TransactionID, err)
		}
		return nil
	})
}

// UpsertTransaction implements ledger.Store.
func (s *Store) UpsertTransaction(ctx context.Context, t *domain.Transaction) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(transactionToRow(t)).Error
	if err != nil {
		return fmt.Errorf("UpsertTransaction %s: %w", t.TransactionID, err)
	}
	return nil
}

// ListCustomers implements ledger.Store.
func (s *Store) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	var rows []customerRow
	if err := s.db.WithContext(ctx).Order("customer_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListCustomers: %w", err)
	}
	out := make([]*domain.Customer, len(rows))
	for i := range rows {
		out[i] = rowToCustomer(&rows[i])
	}
	return out, nil
}

// UpsertCustomer implements ledger.Store.
func (s *Store) UpsertCustomer(ctx context.Context, c *domain.Customer) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(customerToRow(c)).Error
	if err != nil {
		return fmt.Errorf("UpsertCustomer %d: %w", c.CustomerID, err)
	}
	return nil
}

// ListCards implements ledger.Store.
func (s *Store) ListCards(ctx context.Context) ([]*domain.Card, error) {
	var rows []cardRow
	if err := s.db.WithContext(ctx).Order("card_number").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListCards: %w", err)
	}
	out := make([]*domain.Card, len(rows))
	for i := range rows {
		out[i] = rowToCard(&rows[i])
	}
	return out, nil
}

// UpsertCard implements ledger.Store.
func (s *Store) UpsertCard(ctx context.Context, c *domain.Card) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&accountRow{}).
		Where("account_id = ?", c.AccountID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("UpsertCard %s: check account: %w", c.CardNumber, err)
	}
	if count == 0 {
		return domain.ErrAccountNotFound
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(cardToRow(c)).Error
	if err != nil {
		return fmt.Errorf("UpsertCard %s: %w", c.CardNumber, err)
	}
	return nil
}

var _ ledger.Store = (*Store)(nil)
