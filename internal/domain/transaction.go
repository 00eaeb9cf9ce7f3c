package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidTransactionType indicates an unsupported transaction type.
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrReferenceExhausted indicates that no unique reference could be generated.
	ErrReferenceExhausted = errors.New("transaction reference generation exhausted")
	// ErrNotAuthorized indicates that the user may not act on the transaction.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrConcurrencyConflict indicates a write conflict between concurrent
	// ledger operations. The whole operation is safe to retry.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
)

// TransactionType enumerates the supported ledger operations.
type TransactionType string

// Supported transaction types.
const (
	CashIn  TransactionType = "CASH_IN"
	CashOut TransactionType = "CASH_OUT"
	Buy     TransactionType = "BUY"
	Sell    TransactionType = "SELL"
)

// StatusCompleted is the status of every applied transaction.
const StatusCompleted = "COMPLETED"

// Transaction holds a recorded exchange operation. Amount is denominated in
// Currency; AmountTTD is the settled equivalent in the base currency and is
// meaningful for BUY and SELL only. Financial fields never change after
// creation so a reversal can re-derive the exact balance deltas from them.
type Transaction struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	Type          TransactionType `json:"type"`
	Currency      string          `json:"currency"`
	Amount        string          `json:"amount"`
	ExchangeRate  string          `json:"exchange_rate"`
	AmountTTD     string          `json:"amount_ttd"`
	Status        string          `json:"status"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Notes         string          `json:"notes"`
	Signature     string          `json:"signature"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CreateTransactionParams is the input data for recording a transaction.
type CreateTransactionParams struct {
	Reference     string          `json:"reference"`
	Type          TransactionType `json:"type"`
	Currency      string          `json:"currency"`
	Amount        string          `json:"amount"`
	ExchangeRate  string          `json:"exchange_rate"`
	AmountTTD     string          `json:"amount_ttd"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Notes         string          `json:"notes"`
	CreatedBy     string          `json:"created_by"`
}

// UpdateTransactionDetailsParams is the input data for editing the
// non-financial fields of a transaction.
type UpdateTransactionDetailsParams struct {
	ID            int64  `json:"id"`
	Notes         string `json:"notes"`
	Signature     string `json:"signature"`
	CustomerEmail string `json:"customer_email"`
}

// ListTransactionsParams is the input data to filter transactions.
type ListTransactionsParams struct {
	FromDate  time.Time       `json:"from_date"`
	ToDate    time.Time       `json:"to_date"`
	Type      TransactionType `json:"type"`
	Currency  string          `json:"currency"`
	CreatedBy string          `json:"created_by"`
	Limit     int32           `json:"limit"`
	Offset    int32           `json:"offset"`
}

// TransactionResult is the result of an applied or reversed transaction:
// the record plus every account touched, with post-operation balances.
type TransactionResult struct {
	Transaction Transaction `json:"transaction"`
	Accounts    []Account   `json:"accounts"`
}
