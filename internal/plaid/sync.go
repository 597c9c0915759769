package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// Source tags batches produced by this package.
const Source = "plaid"

// Sync fetches the item's accounts and the transactions between start and
// end and maps them into an import batch. Pending transactions are left for
// a later sync.
func Sync(ctx context.Context, f Fetcher, start, end time.Time, logger *slog.Logger) (engine.ImportBatch, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "plaid")

	accounts, err := f.Accounts(ctx)
	if err != nil {
		return engine.ImportBatch{}, fmt.Errorf("failed to sync accounts: %w", err)
	}
	txns, err := f.Transactions(ctx, start, end)
	if err != nil {
		return engine.ImportBatch{}, fmt.Errorf("failed to sync transactions: %w", err)
	}

	batch := engine.ImportBatch{Source: Source}
	known := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		batch.Accounts = append(batch.Accounts, mapAccount(a))
		known[a.ID] = true
	}

	var pending, orphaned int
	for _, t := range txns {
		switch {
		case t.Pending:
			pending++
			continue
		case !known[t.AccountID]:
			orphaned++
			continue
		}
		if txn, ok := mapTransaction(t); ok {
			batch.Transactions = append(batch.Transactions, txn)
		}
	}

	logger.Info("sync fetched",
		"accounts", len(batch.Accounts),
		"transactions", len(batch.Transactions),
		"pending_skipped", pending,
		"orphaned_skipped", orphaned)
	return batch, nil
}

// mapAccount converts a Plaid account. Liabilities are stored as negative
// balances and credit cards keep their limit.
func mapAccount(a Account) model.Account {
	acct := model.Account{
		ExternalID: a.ID,
		Name:       a.Name,
		Type:       mapAccountType(a.Type, a.Subtype),
		Balance:    decimal.NewFromFloat(a.Current).Round(2),
		IsActive:   true,
	}
	if acct.Name == "" {
		acct.Name = a.OfficialName
	}
	if a.Mask != "" {
		acct.Name = fmt.Sprintf("%s ...%s", acct.Name, a.Mask)
	}
	if acct.IsLiability() {
		acct.Balance = acct.Balance.Abs().Neg()
	}
	if acct.Type == model.AccountTypeCredit {
		acct.CreditLimit = decimal.NewFromFloat(a.Limit).Round(2)
	}
	return acct
}

func mapAccountType(typ, subtype string) model.AccountType {
	switch typ {
	case "depository":
		switch subtype {
		case "savings", "money market", "cd", "hsa":
			return model.AccountTypeSavings
		}
		return model.AccountTypeChecking
	case "credit":
		return model.AccountTypeCredit
	case "loan":
		return model.AccountTypeLoan
	case "investment", "brokerage":
		return model.AccountTypeInvestment
	}
	return model.AccountTypeChecking
}

// mapTransaction converts a Plaid transaction, where a positive amount is a
// debit. Zero amounts are dropped.
func mapTransaction(t Transaction) (model.Transaction, bool) {
	amount := decimal.NewFromFloat(t.Amount).Round(2)
	if amount.IsZero() {
		return model.Transaction{}, false
	}

	txnType := model.TransactionTypeExpense
	if amount.IsNegative() {
		txnType = model.TransactionTypeIncome
	}

	merchant := t.MerchantName
	if merchant == "" {
		merchant = t.Name
	}

	return model.Transaction{
		Date:        t.Date,
		Amount:      amount.Abs(),
		AccountID:   t.AccountID,
		Type:        txnType,
		Description: t.Name,
		Merchant:    model.CleanMerchant(merchant),
	}, true
}
