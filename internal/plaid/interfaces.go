package plaid

import (
	"context"
	"time"
)

// Fetcher reads linked accounts and their transactions from an aggregator.
// Implementations return Plaid's own ids in Account.ID and
// Transaction.AccountID; Sync turns them into external ids.
type Fetcher interface {
	Accounts(ctx context.Context) ([]Account, error)
	Transactions(ctx context.Context, startDate, endDate time.Time) ([]Transaction, error)
}

// Account is the subset of a Plaid account that sync uses.
type Account struct {
	ID           string
	Name         string
	OfficialName string
	Mask         string
	Type         string
	Subtype      string
	Current      float64
	Limit        float64
}

// Transaction is the subset of a Plaid transaction that sync uses. Amount
// follows Plaid's sign convention: positive is money leaving the account.
type Transaction struct {
	Date         time.Time
	ID           string
	AccountID    string
	Name         string
	MerchantName string
	Amount       float64
	Pending      bool
}
