package ledger

import (
	"context"
	"testing"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/pkg/currencypkg"
	"github.com/caribfx/bureau/pkg/errorspkg"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testTransaction(txnType domain.TransactionType) domain.Transaction {
	return domain.Transaction{
		ID:        1,
		Reference: "TX20240115ABC123",
		Type:      txnType,
		Currency:  currencypkg.USD,
		Amount:    "100.00",
		AmountTTD: "680.00",
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	usdAccount := domain.Account{ID: 1, Currency: currencypkg.USD, Balance: "100.00"}
	ttdAccount := domain.Account{ID: 2, Currency: currencypkg.TTD, Balance: "320.00"}

	testCases := []struct {
		name          string
		txn           domain.Transaction
		buildStubs    func(m *MockMutator)
		checkResponse func(accounts []domain.Account, err error)
	}{
		{
			name: "CashInCreditsCurrency",
			txn:  testTransaction(domain.CashIn),
			buildStubs: func(m *MockMutator) {
				m.EXPECT().Credit(gomock.Any(), currencypkg.USD, "100.00").
					Times(1).
					Return(usdAccount, nil)
			},
			checkResponse: func(accounts []domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, []domain.Account{usdAccount}, accounts)
			},
		},
		{
			name: "CashOutDebitsCurrency",
			txn:  testTransaction(domain.CashOut),
			buildStubs: func(m *MockMutator) {
				m.EXPECT().Debit(gomock.Any(), currencypkg.USD, "100.00").
					Times(1).
					Return(usdAccount, nil)
			},
			checkResponse: func(accounts []domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, []domain.Account{usdAccount}, accounts)
			},
		},
		{
			name: "BuyDebitsBaseThenCreditsCurrency",
			txn:  testTransaction(domain.Buy),
			buildStubs: func(m *MockMutator) {
				gomock.InOrder(
					m.EXPECT().Debit(gomock.Any(), currencypkg.TTD, "680.00").
						Times(1).
						Return(ttdAccount, nil),
					m.EXPECT().Credit(gomock.Any(), currencypkg.USD, "100.00").
						Times(1).
						Return(usdAccount, nil),
				)
			},
			checkResponse: func(accounts []domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, []domain.Account{ttdAccount, usdAccount}, accounts)
			},
		},
		{
			name: "SellDebitsCurrencyThenCreditsBase",
			txn:  testTransaction(domain.Sell),
			buildStubs: func(m *MockMutator) {
				gomock.InOrder(
					m.EXPECT().Debit(gomock.Any(), currencypkg.USD, "100.00").
						Times(1).
						Return(usdAccount, nil),
					m.EXPECT().Credit(gomock.Any(), currencypkg.TTD, "680.00").
						Times(1).
						Return(ttdAccount, nil),
				)
			},
			checkResponse: func(accounts []domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, []domain.Account{usdAccount, ttdAccount}, accounts)
			},
		},
		{
			name: "FirstLegFailureSkipsSecondLeg",
			txn:  testTransaction(domain.Buy),
			buildStubs: func(m *MockMutator) {
				m.EXPECT().Debit(gomock.Any(), currencypkg.TTD, "680.00").
					Times(1).
					Return(domain.Account{}, domain.ErrInsufficientBalance)
				m.EXPECT().Credit(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(accounts []domain.Account, err error) {
				require.EqualError(t, err, domain.ErrInsufficientBalance.Error())
				require.Empty(t, accounts)
			},
		},
		{
			name: "SecondLegFailurePropagates",
			txn:  testTransaction(domain.Buy),
			buildStubs: func(m *MockMutator) {
				gomock.InOrder(
					m.EXPECT().Debit(gomock.Any(), currencypkg.TTD, "680.00").
						Times(1).
						Return(ttdAccount, nil),
					m.EXPECT().Credit(gomock.Any(), currencypkg.USD, "100.00").
						Times(1).
						Return(domain.Account{}, errorspkg.ErrInternal),
				)
			},
			checkResponse: func(accounts []domain.Account, err error) {
				require.EqualError(t, err, errorspkg.ErrInternal.Error())
				require.Empty(t, accounts)
			},
		},
		{
			name: "InvalidType",
			txn:  testTransaction("LOAN"),
			buildStubs: func(m *MockMutator) {
				m.EXPECT().Credit(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				m.EXPECT().Debit(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(accounts []domain.Account, err error) {
				require.EqualError(t, err, domain.ErrInvalidTransactionType.Error())
				require.Empty(t, accounts)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mutator := NewMockMutator(ctrl)
			tc.buildStubs(mutator)

			tc.checkResponse(Apply(context.Background(), mutator, tc.txn))
		})
	}
}

func TestReverse(t *testing.T) {
	t.Parallel()

	usdAccount := domain.Account{ID: 1, Currency: currencypkg.USD, Balance: "0.00"}
	ttdAccount := domain.Account{ID: 2, Currency: currencypkg.TTD, Balance: "1000.00"}

	testCases := []struct {
		name       string
		txn        domain.Transaction
		buildStubs func(m *MockMutator)
	}{
		{
			name: "CashInReversesToDebit",
			txn:  testTransaction(domain.CashIn),
			buildStubs: func(m *MockMutator) {
				m.EXPECT().Debit(gomock.Any(), currencypkg.USD, "100.00").
					Times(1).
					Return(usdAccount, nil)
			},
		},
		{
			name: "CashOutReversesToCredit",
			txn:  testTransaction(domain.CashOut),
			buildStubs: func(m *MockMutator) {
				m.EXPECT().Credit(gomock.Any(), currencypkg.USD, "100.00").
					Times(1).
					Return(usdAccount, nil)
			},
		},
		{
			name: "BuyReversesToCreditBaseThenDebitCurrency",
			txn:  testTransaction(domain.Buy),
			buildStubs: func(m *MockMutator) {
				gomock.InOrder(
					m.EXPECT().Credit(gomock.Any(), currencypkg.TTD, "680.00").
						Times(1).
						Return(ttdAccount, nil),
					m.EXPECT().Debit(gomock.Any(), currencypkg.USD, "100.00").
						Times(1).
						Return(usdAccount, nil),
				)
			},
		},
		{
			name: "SellReversesToCreditCurrencyThenDebitBase",
			txn:  testTransaction(domain.Sell),
			buildStubs: func(m *MockMutator) {
				gomock.InOrder(
					m.EXPECT().Credit(gomock.Any(), currencypkg.USD, "100.00").
						Times(1).
						Return(usdAccount, nil),
					m.EXPECT().Debit(gomock.Any(), currencypkg.TTD, "680.00").
						Times(1).
						Return(ttdAccount, nil),
				)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mutator := NewMockMutator(ctrl)
			tc.buildStubs(mutator)

			_, err := Reverse(context.Background(), mutator, tc.txn)
			require.NoError(t, err)
		})
	}
}

// memMutator is an in-memory Mutator used to exercise the balance laws
// without a database.
type memMutator struct {
	balances map[string]decimal.Decimal
}

func newMemMutator(balances map[string]string) *memMutator {
	m := &memMutator{balances: map[string]decimal.Decimal{}}
	for currency, balance := range balances {
		m.balances[currency] = decimal.RequireFromString(balance)
	}

	return m
}

func (m *memMutator) account(currency string) domain.Account {
	return domain.Account{
		Currency: currency,
		Balance:  m.balances[currency].StringFixed(2),
	}
}

func (m *memMutator) Credit(_ context.Context, currency, amount string) (domain.Account, error) {
	amountDecimal, err := decimal.NewFromString(amount)
	if err != nil || amountDecimal.LessThanOrEqual(decimal.Zero) {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	balance, ok := m.balances[currency]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	m.balances[currency] = balance.Add(amountDecimal).Round(2)

	return m.account(currency), nil
}

func (m *memMutator) Debit(_ context.Context, currency, amount string) (domain.Account, error) {
	amountDecimal, err := decimal.NewFromString(amount)
	if err != nil || amountDecimal.LessThanOrEqual(decimal.Zero) {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	balance, ok := m.balances[currency]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	if balance.LessThan(amountDecimal) {
		return domain.Account{}, domain.ErrInsufficientBalance
	}

	m.balances[currency] = balance.Sub(amountDecimal).Round(2)

	return m.account(currency), nil
}

func TestApplyReverseRoundTrip(t *testing.T) {
	t.Parallel()

	for _, txnType := range []domain.TransactionType{
		domain.CashIn, domain.CashOut, domain.Buy, domain.Sell,
	} {
		txnType := txnType

		t.Run(string(txnType), func(t *testing.T) {
			t.Parallel()

			mutator := newMemMutator(map[string]string{
				currencypkg.TTD: "1000.00",
				currencypkg.USD: "500.00",
			})

			txn := testTransaction(txnType)

			_, err := Apply(context.Background(), mutator, txn)
			require.NoError(t, err)

			_, err = Reverse(context.Background(), mutator, txn)
			require.NoError(t, err)

			require.Equal(t, "1000.00", mutator.balances[currencypkg.TTD].StringFixed(2))
			require.Equal(t, "500.00", mutator.balances[currencypkg.USD].StringFixed(2))
		})
	}
}

func TestApplyBuyScenario(t *testing.T) {
	t.Parallel()

	mutator := newMemMutator(map[string]string{
		currencypkg.TTD: "1000.00",
		currencypkg.USD: "0.00",
	})

	txn := testTransaction(domain.Buy)

	accounts, err := Apply(context.Background(), mutator, txn)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, "320.00", accounts[0].Balance)
	require.Equal(t, "100.00", accounts[1].Balance)

	accounts, err = Reverse(context.Background(), mutator, txn)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, "1000.00", accounts[0].Balance)
	require.Equal(t, "0.00", accounts[1].Balance)
}

func TestApplyCashOutInsufficientBalance(t *testing.T) {
	t.Parallel()

	mutator := newMemMutator(map[string]string{
		currencypkg.USD: "50.00",
	})

	txn := testTransaction(domain.CashOut)
	txn.Amount = "75.00"

	_, err := Apply(context.Background(), mutator, txn)
	require.EqualError(t, err, domain.ErrInsufficientBalance.Error())
	require.Equal(t, "50.00", mutator.balances[currencypkg.USD].StringFixed(2))
}
