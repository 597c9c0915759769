package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
)

// ImportBatch is a set of accounts and transactions read from a statement
// file or an aggregator. Accounts are keyed by ExternalID and each
// transaction's AccountID holds the ExternalID of its account.
type ImportBatch struct {
	Source       string
	Accounts     []model.Account
	Transactions []model.Transaction
}

// ImportResult summarizes an import.
type ImportResult struct {
	AccountsCreated int `json:"accounts_created"`
	AccountsUpdated int `json:"accounts_updated"`
	Imported        int `json:"imported"`
	Duplicates      int `json:"duplicates"`
}

// Import stores a batch for the user in one transaction. Transactions seen
// before are skipped by hash. Account balances end at the balances carried
// by the batch, which are authoritative.
func (e *Engine) Import(ctx context.Context, userID string, batch ImportBatch) (ImportResult, error) {
	var result ImportResult
	err := e.inTx(ctx, func(tx service.Transaction, _ *[]model.Event) error {
		result = ImportResult{}
		accounts := make(map[string]*model.Account, len(batch.Accounts))
		for i := range batch.Accounts {
			acct, created, err := upsertAccount(ctx, tx, userID, batch.Accounts[i])
			if err != nil {
				return err
			}
			if created {
				result.AccountsCreated++
			} else {
				result.AccountsUpdated++
			}
			accounts[acct.ExternalID] = acct
		}

		for i := range batch.Transactions {
			txn := batch.Transactions[i]
			acct, ok := accounts[txn.AccountID]
			if !ok {
				return common.NewValidationError("account_id", fmt.Sprintf("transaction references unknown account %q", txn.AccountID))
			}
			txn.ID = ""
			txn.Hash = ""
			txn.UserID = userID
			txn.AccountID = acct.ID
			inserted, err := tx.SaveTransaction(ctx, &txn)
			if err != nil {
				return err
			}
			if inserted {
				result.Imported++
			} else {
				result.Duplicates++
			}
		}

		for i := range batch.Accounts {
			statement := batch.Accounts[i]
			acct := accounts[statement.ExternalID]
			acct.Balance = statement.Balance
			if err := tx.UpdateAccount(ctx, acct); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	e.logger.Info("import complete",
		"user_id", userID,
		"source", batch.Source,
		"accounts_created", result.AccountsCreated,
		"accounts_updated", result.AccountsUpdated,
		"imported", result.Imported,
		"duplicates", result.Duplicates)
	return result, nil
}

// upsertAccount finds the account by external id or creates it. Existing
// accounts take the batch's descriptive fields; balances are set later.
func upsertAccount(ctx context.Context, tx service.Transaction, userID string, in model.Account) (*model.Account, bool, error) {
	if in.ExternalID == "" {
		return nil, false, common.NewValidationError("external_id", "is required for imported accounts")
	}
	existing, err := tx.GetAccountByExternalID(ctx, userID, in.ExternalID)
	switch {
	case err == nil:
		if in.Name != "" {
			existing.Name = in.Name
		}
		if in.Institution != "" {
			existing.Institution = in.Institution
		}
		if in.Type.Valid() {
			existing.Type = in.Type
		}
		if in.Type == model.AccountTypeCredit && !in.CreditLimit.IsZero() {
			existing.CreditLimit = in.CreditLimit
		}
		existing.IsActive = true
		return existing, false, nil
	case errors.Is(err, common.ErrNotFound):
		acct := in
		acct.ID = ""
		acct.UserID = userID
		acct.IsActive = true
		if acct.Name == "" {
			acct.Name = in.ExternalID
		}
		if err := tx.CreateAccount(ctx, &acct); err != nil {
			return nil, false, err
		}
		return &acct, true, nil
	default:
		return nil, false, err
	}
}
