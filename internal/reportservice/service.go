// Package reportservice manages business logic layer of reporting.
package reportservice

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/pkg/errorspkg"
)

// Repo provides data access layer to the service.
//
//go:generate mockgen -source=service.go -destination=service_mock.go -package=reportservice
type Repo interface {
	Summary(ctx context.Context, arg domain.SummaryParams) ([]domain.SummaryRow, error)
	ListForExport(ctx context.Context, arg domain.SummaryParams) ([]domain.Transaction, error)
}

// Service facilitates report service layer logic.
type Service struct {
	repo Repo
}

// New returns report Service.
func New(repo Repo) *Service {
	return &Service{repo: repo}
}

// Summary aggregates the period's transactions by type and currency.
func (s *Service) Summary(ctx context.Context, arg domain.SummaryParams) ([]domain.SummaryRow, error) {
	return s.repo.Summary(ctx, arg)
}

var exportHeader = []string{
	"reference", "type", "currency", "amount", "exchange_rate",
	"amount_ttd", "status", "customer_name", "created_by", "created_at",
}

// ExportCSV writes the period's transactions to w as CSV, header first, in
// creation order.
func (s *Service) ExportCSV(ctx context.Context, arg domain.SummaryParams, w io.Writer) error {
	l := zerolog.Ctx(ctx)

	transactions, err := s.repo.ListForExport(ctx, arg)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(exportHeader); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	for _, t := range transactions {
		record := []string{
			t.Reference,
			string(t.Type),
			t.Currency,
			t.Amount,
			t.ExchangeRate,
			t.AmountTTD,
			t.Status,
			t.CustomerName,
			t.CreatedBy,
			t.CreatedAt.UTC().Format(time.RFC3339),
		}

		if err := cw.Write(record); err != nil {
			l.Error().Err(err).Send()
			return errorspkg.ErrInternal
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}
