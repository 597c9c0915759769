package plaid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{ClientID: "id", Secret: "secret", Environment: "sandbox", AccessToken: "token"}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
		errMsg  string
	}{
		{name: "valid sandbox", mutate: func(*Config) {}},
		{name: "valid production", mutate: func(c *Config) { c.Environment = "production" }},
		{name: "missing client id", mutate: func(c *Config) { c.ClientID = "" }, wantErr: common.ErrMissingConfig, errMsg: "client ID"},
		{name: "missing secret", mutate: func(c *Config) { c.Secret = "" }, wantErr: common.ErrMissingConfig, errMsg: "secret"},
		{name: "missing access token", mutate: func(c *Config) { c.AccessToken = "" }, wantErr: common.ErrMissingConfig, errMsg: "access token"},
		{name: "missing environment", mutate: func(c *Config) { c.Environment = "" }, wantErr: common.ErrMissingConfig, errMsg: "environment"},
		{name: "unknown environment", mutate: func(c *Config) { c.Environment = "development" }, wantErr: common.ErrInvalidConfig, errMsg: "development"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewClientWithoutAccessToken(t *testing.T) {
	c, err := NewClient(Config{ClientID: "id", Secret: "secret", Environment: "sandbox"}, nil)
	require.NoError(t, err)

	_, err = c.Accounts(context.Background())
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewClient(Config{ClientID: "id", Environment: "sandbox"}, nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestTransactionsRejectsInvertedRange(t *testing.T) {
	c, err := NewClient(Config{ClientID: "id", Secret: "secret", Environment: "sandbox", AccessToken: "token"}, nil)
	require.NoError(t, err)

	now := time.Now()
	_, err = c.Transactions(context.Background(), now, now.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMapAccount(t *testing.T) {
	tests := []struct {
		name        string
		in          Account
		wantType    model.AccountType
		wantName    string
		wantBalance string
		wantLimit   string
	}{
		{
			name:        "checking",
			in:          Account{ID: "a1", Name: "Everyday", Mask: "0001", Type: "depository", Subtype: "checking", Current: 1520.456},
			wantType:    model.AccountTypeChecking,
			wantName:    "Everyday ...0001",
			wantBalance: "1520.46",
			wantLimit:   "0.00",
		},
		{
			name:        "money market counts as savings",
			in:          Account{ID: "a2", OfficialName: "High Yield MM", Type: "depository", Subtype: "money market", Current: 9000},
			wantType:    model.AccountTypeSavings,
			wantName:    "High Yield MM",
			wantBalance: "9000.00",
			wantLimit:   "0.00",
		},
		{
			name:        "credit card owed amount becomes negative",
			in:          Account{ID: "a3", Name: "Card", Mask: "1111", Type: "credit", Subtype: "credit card", Current: 420.5, Limit: 5000},
			wantType:    model.AccountTypeCredit,
			wantName:    "Card ...1111",
			wantBalance: "-420.50",
			wantLimit:   "5000.00",
		},
		{
			name:        "student loan",
			in:          Account{ID: "a4", Name: "Loan", Type: "loan", Subtype: "student", Current: 12000},
			wantType:    model.AccountTypeLoan,
			wantName:    "Loan",
			wantBalance: "-12000.00",
			wantLimit:   "0.00",
		},
		{
			name:        "brokerage",
			in:          Account{ID: "a5", Name: "Brokerage", Type: "investment", Current: 30000},
			wantType:    model.AccountTypeInvestment,
			wantName:    "Brokerage",
			wantBalance: "30000.00",
			wantLimit:   "0.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapAccount(tt.in)
			assert.Equal(t, tt.in.ID, got.ExternalID)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantBalance, got.Balance.StringFixed(2))
			assert.Equal(t, tt.wantLimit, got.CreditLimit.StringFixed(2))
			assert.True(t, got.IsActive)
		})
	}
}

func TestMapTransaction(t *testing.T) {
	date := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	debit, ok := mapTransaction(Transaction{Date: date, AccountID: "a1", Name: "SQ *BLUE BOTTLE", MerchantName: "BLUE BOTTLE COFFEE INC", Amount: 6.5})
	require.True(t, ok)
	assert.Equal(t, model.TransactionTypeExpense, debit.Type)
	assert.Equal(t, "6.50", debit.Amount.StringFixed(2))
	assert.Equal(t, "SQ *BLUE BOTTLE", debit.Description)
	assert.Equal(t, "Blue Bottle Coffee", debit.Merchant)
	assert.Equal(t, date, debit.Date)

	credit, ok := mapTransaction(Transaction{Date: date, AccountID: "a1", Name: "PAYROLL", Amount: -2100})
	require.True(t, ok)
	assert.Equal(t, model.TransactionTypeIncome, credit.Type)
	assert.Equal(t, "2100.00", credit.Amount.StringFixed(2))
	assert.Equal(t, "Payroll", credit.Merchant)

	_, ok = mapTransaction(Transaction{Date: date, AccountID: "a1", Name: "AUTH HOLD", Amount: 0})
	assert.False(t, ok)
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	mock := &MockClient{
		AccountsFn: func(context.Context) ([]Account, error) {
			return []Account{{ID: "plaid-chk", Name: "Checking", Type: "depository", Subtype: "checking", Current: 800}}, nil
		},
		TransactionsFn: func(context.Context, time.Time, time.Time) ([]Transaction, error) {
			return []Transaction{
				{Date: day, ID: "t1", AccountID: "plaid-chk", Name: "GROCER", Amount: 45.1},
				{Date: day, ID: "t2", AccountID: "plaid-chk", Name: "EMPLOYER", Amount: -1000},
				{Date: day, ID: "t3", AccountID: "plaid-chk", Name: "HOTEL HOLD", Amount: 200, Pending: true},
				{Date: day, ID: "t4", AccountID: "plaid-other", Name: "UNLINKED", Amount: 5},
			}, nil
		},
	}

	batch, err := Sync(ctx, mock, start, end, nil)
	require.NoError(t, err)
	assert.Equal(t, Source, batch.Source)
	require.Len(t, batch.Accounts, 1)
	require.Len(t, batch.Transactions, 2)
	assert.Equal(t, 1, mock.AccountsCalls)
	require.Len(t, mock.TransactionsCalls, 1)
	assert.Equal(t, start, mock.TransactionsCalls[0].StartDate)
	assert.Equal(t, end, mock.TransactionsCalls[0].EndDate)

	db := testutil.SetupTestDB(t)
	u := db.User("pat@example.com")
	result, err := engine.New(db.Storage).Import(ctx, u.ID, batch)
	require.NoError(t, err)
	assert.Equal(t, engine.ImportResult{AccountsCreated: 1, Imported: 2}, result)

	acct, err := db.Storage.GetAccountByExternalID(ctx, u.ID, "plaid-chk")
	require.NoError(t, err)
	assert.Equal(t, "800.00", acct.Balance.StringFixed(2))
}

func TestSyncPropagatesErrors(t *testing.T) {
	boom := errors.New("item login required")
	mock := &MockClient{
		TransactionsFn: func(context.Context, time.Time, time.Time) ([]Transaction, error) {
			return nil, boom
		},
	}
	_, err := Sync(context.Background(), mock, time.Now().AddDate(0, -1, 0), time.Now(), nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to sync transactions")
}
