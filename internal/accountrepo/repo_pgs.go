// Package accountrepo manages repository layer of currency accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/pkg/dbpkg"
	"github.com/caribfx/bureau/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RepoPGS facilitates account repository layer logic. It runs on either a
// connection or an open transaction; ledger mutations must be bound to the
// transaction that owns them.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const createQuery = `
INSERT INTO
    accounts (currency, balance)
VALUES
    ($1, $2)
ON CONFLICT (currency) DO NOTHING
RETURNING id, currency, balance, created_at
`

// Create creates the account for the given currency and returns it. If the
// account already exists it is returned unchanged.
func (r *RepoPGS) Create(ctx context.Context, currency, balance string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, currency, balance)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Currency,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return r.Get(ctx, currency)
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT
	id, currency, balance, created_at
FROM accounts
WHERE currency = $1
`

// Get returns the account for the given currency.
func (r *RepoPGS) Get(ctx context.Context, currency string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, currency)

	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Currency,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const listQuery = `
SELECT
	id, currency, balance, created_at
FROM accounts
ORDER BY currency
`

// List returns all accounts ordered by currency.
func (r *RepoPGS) List(ctx context.Context) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Currency, &a.Balance, &a.CreatedAt); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
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

// Credit increases the account's balance by amount and returns the changed account.
func (r *RepoPGS) Credit(ctx context.Context, currency, amount string) (domain.Account, error) {
	return r.addBalance(ctx, currency, amount, false)
}

// Debit decreases the account's balance by amount and returns the changed
// account. It fails with domain.ErrInsufficientBalance before any write when
// the balance does not cover the amount.
func (r *RepoPGS) Debit(ctx context.Context, currency, amount string) (domain.Account, error) {
	return r.addBalance(ctx, currency, amount, true)
}

const getForUpdateQuery = `
SELECT
	id, currency, balance, created_at
FROM accounts
WHERE currency = $1
FOR UPDATE
`

const setBalanceQuery = `
UPDATE accounts
SET balance = $1
WHERE currency = $2
RETURNING id, currency, balance, created_at
`

// addBalance locks the account row, checks the balance and writes the new
// one rounded to 2 decimals. The row lock serializes concurrent mutations of
// the same currency for the lifetime of the surrounding transaction.
func (r *RepoPGS) addBalance(ctx context.Context, currency, amount string, debit bool) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var a domain.Account

	amountDecimal, err := decimal.NewFromString(amount)
	if err != nil {
		l.Info().Err(err).Send()
		return a, domain.ErrInvalidAmount
	}

	if amountDecimal.LessThanOrEqual(decimal.Zero) {
		return a, domain.ErrInvalidAmount
	}

	row := r.db.QueryRowContext(ctx, getForUpdateQuery, currency)

	err = row.Scan(
		&a.ID,
		&a.Currency,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return domain.Account{}, mapConflict(err)
	}

	balance, err := decimal.NewFromString(a.Balance)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, errorspkg.ErrInternal
	}

	if debit {
		if balance.LessThan(amountDecimal) {
			return domain.Account{}, domain.ErrInsufficientBalance
		}

		balance = balance.Sub(amountDecimal)
	} else {
		balance = balance.Add(amountDecimal)
	}

	row = r.db.QueryRowContext(ctx, setBalanceQuery, balance.Round(2).StringFixed(2), currency)

	err = row.Scan(
		&a.ID,
		&a.Currency,
		&a.Balance,
		&a.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, mapConflict(err)
	}

	return a, nil
}

// mapConflict maps postgres serialization and deadlock failures to
// domain.ErrConcurrencyConflict; everything else stays internal.
func mapConflict(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", "40P01":
			return domain.ErrConcurrencyConflict
		}
	}

	return errorspkg.ErrInternal
}
