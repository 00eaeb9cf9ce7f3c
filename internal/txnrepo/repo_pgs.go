// Package txnrepo manages repository layer of exchange transactions.
package txnrepo

import (
	"context"
	"database/sql"

	"github.com/caribfx/bureau/internal/accountrepo"
	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/internal/ledger"
	"github.com/caribfx/bureau/pkg/dbpkg"
	"github.com/caribfx/bureau/pkg/errorspkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns transaction RepoPGS bound to an open transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns transaction RepoPGS with a connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const allColumns = `
	id, reference, type, currency, amount, exchange_rate, amount_ttd,
	status, customer_name, customer_email, notes, signature, created_by, created_at
`

const createQuery = `
INSERT INTO transactions (
	reference,
	type,
	currency,
	amount,
	exchange_rate,
	amount_ttd,
	status,
	customer_name,
	customer_email,
	notes,
	created_by
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
) RETURNING` + allColumns

func scanTransaction(row *sql.Row, t *domain.Transaction) error {
	return row.Scan(
		&t.ID,
		&t.Reference,
		&t.Type,
		&t.Currency,
		&t.Amount,
		&t.ExchangeRate,
		&t.AmountTTD,
		&t.Status,
		&t.CustomerName,
		&t.CustomerEmail,
		&t.Notes,
		&t.Signature,
		&t.CreatedBy,
		&t.CreatedAt,
	)
}

// Create inserts the transaction record and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.Reference,
		arg.Type,
		arg.Currency,
		arg.Amount,
		arg.ExchangeRate,
		arg.AmountTTD,
		domain.StatusCompleted,
		arg.CustomerName,
		arg.CustomerEmail,
		arg.Notes,
		arg.CreatedBy,
	)

	var t domain.Transaction

	if err := scanTransaction(row, &t); err != nil {
		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transactions_reference_key":
				return t, domain.ErrReferenceExhausted
			case "transactions_amount_check":
				return t, domain.ErrInvalidAmount
			case "transactions_created_by_fkey":
				return t, domain.ErrUserNotFound
			}
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const getQuery = `
SELECT` + allColumns + `
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	var t domain.Transaction

	if err := scanTransaction(row, &t); err != nil {
		if err == sql.ErrNoRows {
			return t, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const referenceExistsQuery = `
SELECT EXISTS (SELECT 1 FROM transactions WHERE reference = $1)
`

// ReferenceExists reports whether a transaction with the given reference exists.
func (r *RepoPGS) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	l := zerolog.Ctx(ctx)

	var exists bool

	err := r.db.QueryRowContext(ctx, referenceExistsQuery, reference).Scan(&exists)
	if err != nil {
		l.Error().Err(err).Send()
		return false, errorspkg.ErrInternal
	}

	return exists, nil
}

const listQuery = `
SELECT` + allColumns + `
FROM transactions
WHERE created_at >= $1
	AND created_at < $2
	AND ($3 = '' OR type = $3)
	AND ($4 = '' OR currency = $4)
	AND ($5 = '' OR created_by = $5)
ORDER BY created_at DESC, id DESC
LIMIT $6 OFFSET $7
`

// List returns transactions matching the given filters, newest first.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery,
		arg.FromDate,
		arg.ToDate,
		string(arg.Type),
		arg.Currency,
		arg.CreatedBy,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.Reference,
			&t.Type,
			&t.Currency,
			&t.Amount,
			&t.ExchangeRate,
			&t.AmountTTD,
			&t.Status,
			&t.CustomerName,
			&t.CustomerEmail,
			&t.Notes,
			&t.Signature,
			&t.CreatedBy,
			&t.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const updateDetailsQuery = `
UPDATE transactions
SET notes = $2, signature = $3, customer_email = $4
WHERE id = $1
RETURNING` + allColumns

// UpdateDetails changes the non-financial fields of a transaction. Financial
// fields never change after creation.
func (r *RepoPGS) UpdateDetails(ctx context.Context, arg domain.UpdateTransactionDetailsParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, updateDetailsQuery, arg.ID, arg.Notes, arg.Signature, arg.CustomerEmail)

	var t domain.Transaction

	if err := scanTransaction(row, &t); err != nil {
		if err == sql.ErrNoRows {
			return t, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const deleteQuery = `
DELETE FROM transactions
WHERE id = $1
`

// Delete removes the transaction record with the given id.
func (r *RepoPGS) Delete(ctx context.Context, id int64) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if n == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// CreateTx records a transaction and applies its balance deltas within a
// single dbpkg transaction. Either the record and every balance change
// commit together or the rollback discards them all.
func (r *RepoPGS) CreateTx(ctx context.Context, arg domain.CreateTransactionParams) (domain.TransactionResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransactionResult

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	txnRepo := NewTxRepoPGS(tx)
	accountRepo := accountrepo.NewRepoPGS(tx)

	result.Transaction, err = txnRepo.Create(ctx, arg)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.TransactionResult{}, err
	}

	result.Accounts, err = ledger.Apply(ctx, accountRepo, result.Transaction)
	if err != nil {
		l.Warn().Err(err).Send()
		return domain.TransactionResult{}, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.TransactionResult{}, mapConflict(err)
	}

	return result, nil
}

// DeleteTx reverses the transaction's balance deltas and removes the record
// within a single dbpkg transaction. A failing reversal leaves the record
// and every balance untouched.
func (r *RepoPGS) DeleteTx(ctx context.Context, txn domain.Transaction) (domain.TransactionResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransactionResult

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	txnRepo := NewTxRepoPGS(tx)
	accountRepo := accountrepo.NewRepoPGS(tx)

	result.Transaction = txn

	result.Accounts, err = ledger.Reverse(ctx, accountRepo, txn)
	if err != nil {
		l.Warn().Err(err).Send()
		return domain.TransactionResult{}, err
	}

	if err := txnRepo.Delete(ctx, txn.ID); err != nil {
		l.Error().Err(err).Send()
		return domain.TransactionResult{}, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.TransactionResult{}, mapConflict(err)
	}

	return result, nil
}

func mapConflict(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", "40P01":
			return domain.ErrConcurrencyConflict
		}
	}

	return errorspkg.ErrInternal
}
