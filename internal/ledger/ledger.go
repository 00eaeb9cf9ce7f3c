// Package ledger sequences the account balance mutations implied by a
// transaction. The step table in planSteps is the single source of truth for
// which accounts a transaction type touches; reversal runs the same steps
// with the operations flipped, using only the amounts stored on the
// transaction record.
package ledger

import (
	"context"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/pkg/currencypkg"
)

// Mutator applies a single signed balance change to one currency account.
// Implementations must enforce amount > 0 and non-negative balances and must
// persist within the caller's transaction scope.
//
//go:generate mockgen -source ledger.go -destination ledger_mock.go -package ledger
type Mutator interface {
	Credit(ctx context.Context, currency, amount string) (domain.Account, error)
	Debit(ctx context.Context, currency, amount string) (domain.Account, error)
}

type step struct {
	credit   bool
	currency string
	amount   string
}

func planSteps(txn domain.Transaction) ([]step, error) {
	switch txn.Type {
	case domain.CashIn:
		return []step{
			{credit: true, currency: txn.Currency, amount: txn.Amount},
		}, nil
	case domain.CashOut:
		return []step{
			{credit: false, currency: txn.Currency, amount: txn.Amount},
		}, nil
	case domain.Buy:
		// The bureau buys foreign currency: pay out TTD, take in Currency.
		return []step{
			{credit: false, currency: currencypkg.BaseCurrency, amount: txn.AmountTTD},
			{credit: true, currency: txn.Currency, amount: txn.Amount},
		}, nil
	case domain.Sell:
		// The bureau sells foreign currency: pay out Currency, take in TTD.
		return []step{
			{credit: false, currency: txn.Currency, amount: txn.Amount},
			{credit: true, currency: currencypkg.BaseCurrency, amount: txn.AmountTTD},
		}, nil
	}

	return nil, domain.ErrInvalidTransactionType
}

// Apply executes the balance mutations that record the transaction. All
// steps run against the given mutator; the caller owns the surrounding
// transaction scope, so an error from any step aborts every step.
func Apply(ctx context.Context, m Mutator, txn domain.Transaction) ([]domain.Account, error) {
	return run(ctx, m, txn, false)
}

// Reverse executes the exact mirror of Apply using the amounts stored on the
// transaction. It never re-derives amounts from current rates.
func Reverse(ctx context.Context, m Mutator, txn domain.Transaction) ([]domain.Account, error) {
	return run(ctx, m, txn, true)
}

func run(ctx context.Context, m Mutator, txn domain.Transaction, reverse bool) ([]domain.Account, error) {
	steps, err := planSteps(txn)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(steps))

	for _, s := range steps {
		var (
			account domain.Account
			err     error
		)

		if s.credit != reverse {
			account, err = m.Credit(ctx, s.currency, s.amount)
		} else {
			account, err = m.Debit(ctx, s.currency, s.amount)
		}

		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, nil
}
