// Package txnservice manages business logic layer of exchange transactions.
package txnservice

import (
	"context"
	"time"

	"github.com/caribfx/bureau/internal/accountdelivery"
	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/internal/receipt"
	"github.com/caribfx/bureau/pkg/currencypkg"
	"github.com/caribfx/bureau/pkg/randompkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	referencePrefix   = "TX"
	referenceSuffix   = 6
	referenceAttempts = 10
)

// Repo provides data access layer interface needed by transaction service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package txnservice
type Repo interface {
	CreateTx(ctx context.Context, arg domain.CreateTransactionParams) (domain.TransactionResult, error)
	DeleteTx(ctx context.Context, txn domain.Transaction) (domain.TransactionResult, error)
	Get(ctx context.Context, id int64) (domain.Transaction, error)
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
	UpdateDetails(ctx context.Context, arg domain.UpdateTransactionDetailsParams) (domain.Transaction, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
}

// Service facilitates transaction service layer logic.
type Service struct {
	repo           Repo
	accountService accountdelivery.Service
	receipts       receipt.Sender
}

// New returns transaction service struct to manage transaction bussines logic.
func New(tr Repo, as accountdelivery.Service, rs receipt.Sender) *Service {
	return &Service{
		repo:           tr,
		accountService: as,
		receipts:       rs,
	}
}

func parsePositive(amount string) (decimal.Decimal, error) {
	amountDecimal, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, domain.ErrInvalidAmount
	}

	if amountDecimal.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, domain.ErrInvalidAmount
	}

	return amountDecimal, nil
}

// validRequest fast-fails a proposed transaction against current balances.
// The check is advisory: balances can move between here and apply, so the
// mutator re-checks under the row lock and remains the authority.
func (s *Service) validRequest(ctx context.Context, arg domain.CreateTransactionParams) error {
	l := zerolog.Ctx(ctx)

	amount, err := parsePositive(arg.Amount)
	if err != nil {
		l.Info().Err(err).Send()
		return err
	}

	var amountTTD decimal.Decimal

	if arg.Type == domain.Buy || arg.Type == domain.Sell {
		amountTTD, err = parsePositive(arg.AmountTTD)
		if err != nil {
			l.Info().Err(err).Send()
			return err
		}

		rate, err := decimal.NewFromString(arg.ExchangeRate)
		if err != nil || rate.IsNegative() {
			l.Info().Err(err).Send()
			return domain.ErrInvalidAmount
		}
	}

	switch arg.Type {
	case domain.CashIn:
		return nil
	case domain.CashOut, domain.Sell:
		account, err := s.accountService.Get(ctx, arg.Currency)
		if err != nil {
			l.Info().Err(err).Send()
			return err
		}

		balance, err := decimal.NewFromString(account.Balance)
		if err != nil {
			l.Error().Err(err).Send()
			return err
		}

		if balance.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}

		return nil
	case domain.Buy:
		baseAccount, err := s.accountService.Get(ctx, currencypkg.BaseCurrency)
		if err != nil {
			l.Info().Err(err).Send()
			return err
		}

		baseBalance, err := decimal.NewFromString(baseAccount.Balance)
		if err != nil {
			l.Error().Err(err).Send()
			return err
		}

		if baseBalance.LessThan(amountTTD) {
			return domain.ErrInsufficientBalance
		}

		return nil
	}

	return domain.ErrInvalidTransactionType
}

// newReference generates a collision-checked human-readable reference. It
// gives up after a fixed number of attempts instead of ever returning a
// duplicate; a resubmission gets a fresh set of attempts.
func (s *Service) newReference(ctx context.Context) (string, error) {
	date := time.Now().UTC().Format("20060102")

	for i := 0; i < referenceAttempts; i++ {
		reference := referencePrefix + date + randompkg.Base36(referenceSuffix)

		exists, err := s.repo.ReferenceExists(ctx, reference)
		if err != nil {
			return "", err
		}

		if !exists {
			return reference, nil
		}
	}

	return "", domain.ErrReferenceExhausted
}

// Create validates, records and applies a transaction, then dispatches the
// customer receipt. The receipt runs after the commit; its failure is logged
// and never affects the recorded transaction.
func (s *Service) Create(ctx context.Context, createdBy string, arg domain.CreateTransactionParams) (domain.TransactionResult, error) {
	l := zerolog.Ctx(ctx)

	arg.CreatedBy = createdBy

	if err := s.validRequest(ctx, arg); err != nil {
		return domain.TransactionResult{}, err
	}

	reference, err := s.newReference(ctx)
	if err != nil {
		l.Warn().Err(err).Send()
		return domain.TransactionResult{}, err
	}

	arg.Reference = reference

	result, err := s.repo.CreateTx(ctx, arg)
	if err != nil {
		return domain.TransactionResult{}, err
	}

	if err := s.receipts.Send(ctx, result.Transaction); err != nil {
		l.Warn().Err(err).Str("reference", result.Transaction.Reference).Msg("receipt delivery failed")
	}

	return result, nil
}

// Get returns the transaction with the given id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	return s.repo.Get(ctx, id)
}

// List returns transactions matching the given filters.
func (s *Service) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	return s.repo.List(ctx, arg)
}

func authorize(txn domain.Transaction, username, role string) error {
	if role != domain.RoleAdmin && txn.CreatedBy != username {
		return domain.ErrNotAuthorized
	}

	return nil
}

// Delete reverses the transaction's balance deltas and removes its record.
// Only the creator or an admin may delete.
func (s *Service) Delete(ctx context.Context, username, role string, id int64) (domain.TransactionResult, error) {
	l := zerolog.Ctx(ctx)

	txn, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.TransactionResult{}, err
	}

	if err := authorize(txn, username, role); err != nil {
		l.Warn().Str("username", username).Str("reference", txn.Reference).Msg("unauthorized delete attempt")
		return domain.TransactionResult{}, err
	}

	return s.repo.DeleteTx(ctx, txn)
}

// UpdateDetails edits the non-financial fields of a transaction. It never
// touches the ledger.
func (s *Service) UpdateDetails(ctx context.Context, username, role string, arg domain.UpdateTransactionDetailsParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	txn, err := s.repo.Get(ctx, arg.ID)
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := authorize(txn, username, role); err != nil {
		l.Warn().Str("username", username).Str("reference", txn.Reference).Msg("unauthorized update attempt")
		return domain.Transaction{}, err
	}

	return s.repo.UpdateDetails(ctx, arg)
}
