package txnrepo

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"

	"github.com/caribfx/bureau/internal/accountrepo"
	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/pkg/configpkg"
	"github.com/caribfx/bureau/pkg/currencypkg"
	"github.com/caribfx/bureau/pkg/randompkg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "github.com/lib/pq"
)

var (
	testRepo        *RepoPGS
	testAccountRepo *accountrepo.RepoPGS
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	testDB, err := sql.Open(config.DBDriver, config.DBSource)
	if err != nil {
		log.Fatal("cannot connect to db:", err)
	}

	testRepo = NewRepoPGS(testDB)
	testAccountRepo = accountrepo.NewRepoPGS(testDB)

	os.Exit(m.Run())
}

func seedAccount(t *testing.T, currency, balance string) domain.Account {
	t.Helper()

	account, err := testAccountRepo.Create(context.Background(), currency, balance)
	require.NoError(t, err)

	return account
}

func buyParams(reference string) domain.CreateTransactionParams {
	return domain.CreateTransactionParams{
		Reference:    reference,
		Type:         domain.Buy,
		Currency:     currencypkg.USD,
		Amount:       "100.00",
		ExchangeRate: "6.80",
		AmountTTD:    "680.00",
		CustomerName: "Test Customer",
		CreatedBy:    "teller1",
	}
}

func newReference() string {
	return "TX20240115" + randompkg.Base36(6)
}

func balanceOf(t *testing.T, currency string) string {
	t.Helper()

	account, err := testAccountRepo.Get(context.Background(), currency)
	require.NoError(t, err)

	return account.Balance
}

func TestCreateTxAppliesBothLegs(t *testing.T) {
	seedAccount(t, currencypkg.TTD, "1000.00")
	seedAccount(t, currencypkg.USD, "0")

	ttdBefore := balanceOf(t, currencypkg.TTD)
	usdBefore := balanceOf(t, currencypkg.USD)

	arg := buyParams(newReference())

	result, err := testRepo.CreateTx(context.Background(), arg)
	require.NoError(t, err)
	require.NotZero(t, result.Transaction.ID)
	require.Equal(t, arg.Reference, result.Transaction.Reference)
	require.Equal(t, domain.StatusCompleted, result.Transaction.Status)
	require.Len(t, result.Accounts, 2)

	// Reversing by delete restores both balances exactly.
	_, err = testRepo.DeleteTx(context.Background(), result.Transaction)
	require.NoError(t, err)

	require.Equal(t, ttdBefore, balanceOf(t, currencypkg.TTD))
	require.Equal(t, usdBefore, balanceOf(t, currencypkg.USD))

	_, err = testRepo.Get(context.Background(), result.Transaction.ID)
	require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
}

func TestCreateTxInsufficientBalanceRollsBack(t *testing.T) {
	seedAccount(t, currencypkg.TTD, "1000.00")
	seedAccount(t, currencypkg.USD, "0")

	ttdBefore := balanceOf(t, currencypkg.TTD)
	usdBefore := balanceOf(t, currencypkg.USD)

	arg := buyParams(newReference())
	arg.AmountTTD = "99999999.00"

	_, err := testRepo.CreateTx(context.Background(), arg)
	require.EqualError(t, err, domain.ErrInsufficientBalance.Error())

	// Neither the record nor any balance change survived.
	require.Equal(t, ttdBefore, balanceOf(t, currencypkg.TTD))
	require.Equal(t, usdBefore, balanceOf(t, currencypkg.USD))

	exists, err := testRepo.ReferenceExists(context.Background(), arg.Reference)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestDeleteTxTwice(t *testing.T) {
	seedAccount(t, currencypkg.TTD, "1000.00")
	seedAccount(t, currencypkg.USD, "0")

	result, err := testRepo.CreateTx(context.Background(), buyParams(newReference()))
	require.NoError(t, err)

	_, err = testRepo.DeleteTx(context.Background(), result.Transaction)
	require.NoError(t, err)

	usdAfter := balanceOf(t, currencypkg.USD)
	ttdAfter := balanceOf(t, currencypkg.TTD)

	_, err = testRepo.DeleteTx(context.Background(), result.Transaction)
	require.EqualError(t, err, domain.ErrTransactionNotFound.Error())

	// The failed second delete did not move any balance.
	require.Equal(t, usdAfter, balanceOf(t, currencypkg.USD))
	require.Equal(t, ttdAfter, balanceOf(t, currencypkg.TTD))
}

func TestCreateTxConcurrent(t *testing.T) {
	seedAccount(t, currencypkg.TTD, "0")
	seedAccount(t, currencypkg.USD, "0")

	// Headroom so no interleaving trips the balance check; the row locks
	// may then only surface a deadlock abort.
	_, err := testAccountRepo.Credit(context.Background(), currencypkg.TTD, "100000.00")
	require.NoError(t, err)
	_, err = testAccountRepo.Credit(context.Background(), currencypkg.USD, "100000.00")
	require.NoError(t, err)

	ttdBefore, err := decimal.NewFromString(balanceOf(t, currencypkg.TTD))
	require.NoError(t, err)
	usdBefore, err := decimal.NewFromString(balanceOf(t, currencypkg.USD))
	require.NoError(t, err)

	// Run n concurrent units of work, buys and sells interleaved so the
	// ledger steps lock the TTD and USD rows in opposite orders.
	n := 20

	type txnOutcome struct {
		result domain.TransactionResult
		err    error
	}

	outcomes := make(chan txnOutcome)

	for i := 0; i < n; i++ {
		arg := buyParams(newReference())
		if i%2 == 1 {
			arg.Type = domain.Sell
		}

		go func(arg domain.CreateTransactionParams) {
			result, err := testRepo.CreateTx(context.Background(), arg)
			outcomes <- txnOutcome{result, err}
		}(arg)
	}

	var buys, sells int64

	for i := 0; i < n; i++ {
		o := <-outcomes

		if o.err != nil {
			// A deadlock victim aborted by postgres is the only
			// acceptable failure; it must roll back whole.
			require.EqualError(t, o.err, domain.ErrConcurrencyConflict.Error())
			continue
		}

		switch o.result.Transaction.Type {
		case domain.Buy:
			buys++
		case domain.Sell:
			sells++
		}
	}

	amount := decimal.RequireFromString("100.00")
	amountTTD := decimal.RequireFromString("680.00")

	// Final balance equals the initial balance plus the algebraic sum of
	// the committed deltas, whatever the interleaving.
	wantTTD := ttdBefore.
		Sub(amountTTD.Mul(decimal.NewFromInt(buys))).
		Add(amountTTD.Mul(decimal.NewFromInt(sells)))
	wantUSD := usdBefore.
		Add(amount.Mul(decimal.NewFromInt(buys))).
		Sub(amount.Mul(decimal.NewFromInt(sells)))

	ttdAfter, err := decimal.NewFromString(balanceOf(t, currencypkg.TTD))
	require.NoError(t, err)
	usdAfter, err := decimal.NewFromString(balanceOf(t, currencypkg.USD))
	require.NoError(t, err)

	require.True(t, wantTTD.Equal(ttdAfter), "TTD balance = %v, want %v", ttdAfter, wantTTD)
	require.True(t, wantUSD.Equal(usdAfter), "USD balance = %v, want %v", usdAfter, wantUSD)
}

func TestUpdateDetails(t *testing.T) {
	seedAccount(t, currencypkg.USD, "1000.00")

	arg := domain.CreateTransactionParams{
		Reference: newReference(),
		Type:      domain.CashIn,
		Currency:  currencypkg.USD,
		Amount:    "25.00",
		CreatedBy: "teller1",
	}

	result, err := testRepo.CreateTx(context.Background(), arg)
	require.NoError(t, err)

	updated, err := testRepo.UpdateDetails(context.Background(), domain.UpdateTransactionDetailsParams{
		ID:            result.Transaction.ID,
		Notes:         "walk-in",
		Signature:     "sig-data",
		CustomerEmail: "customer@email.com",
	})
	require.NoError(t, err)
	require.Equal(t, "walk-in", updated.Notes)
	require.Equal(t, "sig-data", updated.Signature)
	require.Equal(t, "customer@email.com", updated.CustomerEmail)

	// Financial fields stay as created.
	require.Equal(t, result.Transaction.Amount, updated.Amount)
	require.Equal(t, result.Transaction.Currency, updated.Currency)
	require.Equal(t, result.Transaction.Type, updated.Type)

	_, err = testRepo.UpdateDetails(context.Background(), domain.UpdateTransactionDetailsParams{ID: -1})
	require.EqualError(t, err, domain.ErrTransactionNotFound.Error())
}

func TestList(t *testing.T) {
	seedAccount(t, currencypkg.USD, "1000.00")

	arg := domain.CreateTransactionParams{
		Reference: newReference(),
		Type:      domain.CashIn,
		Currency:  currencypkg.USD,
		Amount:    "10.00",
		CreatedBy: "teller1",
	}

	result, err := testRepo.CreateTx(context.Background(), arg)
	require.NoError(t, err)

	listArg := domain.ListTransactionsParams{
		FromDate: result.Transaction.CreatedAt.AddDate(0, 0, -1),
		ToDate:   result.Transaction.CreatedAt.AddDate(0, 0, 1),
		Type:     domain.CashIn,
		Currency: currencypkg.USD,
		Limit:    100,
	}

	items, err := testRepo.List(context.Background(), listArg)
	require.NoError(t, err)
	require.NotEmpty(t, items)

	for _, item := range items {
		require.Equal(t, domain.CashIn, item.Type)
		require.Equal(t, currencypkg.USD, item.Currency)
	}
}
