package plaid

import (
	"context"
	"time"
)

// MockClient is a scripted Fetcher for tests.
type MockClient struct {
	AccountsFn     func(ctx context.Context) ([]Account, error)
	TransactionsFn func(ctx context.Context, startDate, endDate time.Time) ([]Transaction, error)

	TransactionsCalls []TransactionsCall
	AccountsCalls     int
}

// TransactionsCall records the parameters of a Transactions call.
type TransactionsCall struct {
	StartDate time.Time
	EndDate   time.Time
}

// Accounts implements Fetcher.
func (m *MockClient) Accounts(ctx context.Context) ([]Account, error) {
	m.AccountsCalls++
	if m.AccountsFn != nil {
		return m.AccountsFn(ctx)
	}
	return nil, nil
}

// Transactions implements Fetcher.
func (m *MockClient) Transactions(ctx context.Context, startDate, endDate time.Time) ([]Transaction, error) {
	m.TransactionsCalls = append(m.TransactionsCalls, TransactionsCall{StartDate: startDate, EndDate: endDate})
	if m.TransactionsFn != nil {
		return m.TransactionsFn(ctx, startDate, endDate)
	}
	return nil, nil
}

var _ Fetcher = (*MockClient)(nil)
