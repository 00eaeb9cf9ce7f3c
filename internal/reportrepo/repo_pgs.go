// Package reportrepo manages repository layer of reporting aggregates.
package reportrepo

import (
	"context"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/pkg/dbpkg"
	"github.com/caribfx/bureau/pkg/errorspkg"

	"github.com/rs/zerolog"
)

// RepoPGS facilitates report repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns report RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const summaryQuery = `
SELECT
	type,
	currency,
	count(*),
	coalesce(sum(amount), 0),
	coalesce(sum(amount_ttd), 0)
FROM transactions
WHERE created_at >= $1
	AND created_at < $2
GROUP BY type, currency
ORDER BY type, currency
`

// Summary aggregates completed transactions by type and currency over the
// given period.
func (r *RepoPGS) Summary(ctx context.Context, arg domain.SummaryParams) ([]domain.SummaryRow, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, summaryQuery, arg.FromDate, arg.ToDate)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.SummaryRow{}

	for rows.Next() {
		var row domain.SummaryRow
		if err := rows.Scan(
			&row.Type,
			&row.Currency,
			&row.Count,
			&row.TotalAmount,
			&row.TotalTTD,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, row)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const exportQuery = `
SELECT
	reference, type, currency, amount, exchange_rate, amount_ttd,
	status, customer_name, created_by, created_at
FROM transactions
WHERE created_at >= $1
	AND created_at < $2
ORDER BY created_at, id
`

// ListForExport returns every transaction of the period in creation order,
// with the subset of fields the export carries.
func (r *RepoPGS) ListForExport(ctx context.Context, arg domain.SummaryParams) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, exportQuery, arg.FromDate, arg.ToDate)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.Reference,
			&t.Type,
			&t.Currency,
			&t.Amount,
			&t.ExchangeRate,
			&t.AmountTTD,
			&t.Status,
			&t.CustomerName,
			&t.CreatedBy,
			&t.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
