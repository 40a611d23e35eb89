package domain

import "errors"

var (
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountInactive indicates the referenced account exists but is not active.
	ErrAccountInactive = errors.New("account is not active")

	// ErrTransactionNotFound indicates the referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrCustomerNotFound indicates the referenced customer does not exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrInvalidRecord indicates a record failed field or referential validation.
	ErrInvalidRecord = errors.New("invalid record")
)
