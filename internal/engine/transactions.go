package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
)

// RecordTransaction stores a transaction after checking that every account
// and category it references belongs to the user. An uncategorized expense
// is categorized first when a categorizer is configured. Identical manual
// entries are all kept; only a repeated idempotency key is dropped, and the
// returned flag is then false.
func (e *Engine) RecordTransaction(ctx context.Context, txn *model.Transaction, idempotencyKey string) (bool, error) {
	if txn.Date.IsZero() {
		txn.Date = e.now()
	}
	txn.Hash = model.EntryHash(txn.UserID, idempotencyKey)
	if err := e.checkReferences(ctx, txn); err != nil {
		return false, err
	}
	if txn.CategoryID == "" && txn.Type == model.TransactionTypeExpense && e.categorizer != nil {
		categoryID, err := e.suggestCategory(ctx, txn.UserID, txn.Description)
		if err != nil {
			e.logger.Warn("categorization skipped", "user_id", txn.UserID, "error", err)
		}
		txn.CategoryID = categoryID
	}
	return e.store.SaveTransaction(ctx, txn)
}

func (e *Engine) checkReferences(ctx context.Context, txn *model.Transaction) error {
	if _, err := e.store.GetAccount(ctx, txn.UserID, txn.AccountID); err != nil {
		return err
	}
	if txn.DestinationAccountID != "" {
		if txn.DestinationAccountID == txn.AccountID {
			return common.NewValidationError("destination_account_id", "must differ from account_id")
		}
		if _, err := e.store.GetAccount(ctx, txn.UserID, txn.DestinationAccountID); err != nil {
			return err
		}
	}
	if txn.CategoryID != "" {
		if _, err := e.store.GetCategory(ctx, txn.UserID, txn.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

// Categorize asks the categorizer for a label and stores the matching
// category on the transaction. It returns the category id, or "" when the
// label matches none of the user's expense categories.
func (e *Engine) Categorize(ctx context.Context, userID, transactionID string) (string, error) {
	if e.categorizer == nil {
		return "", fmt.Errorf("categorization is not configured: %w", common.ErrMissingConfig)
	}
	txn, err := e.store.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return "", err
	}
	categoryID, err := e.suggestCategory(ctx, userID, txn.Description)
	if err != nil {
		return "", err
	}
	if categoryID == "" {
		return "", nil
	}
	if err := e.store.UpdateTransactionCategory(ctx, userID, transactionID, categoryID); err != nil {
		return "", err
	}
	return categoryID, nil
}

func (e *Engine) suggestCategory(ctx context.Context, userID, description string) (string, error) {
	categories, err := e.store.ListCategories(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to list categories: %w", err)
	}
	byLabel := make(map[string]string)
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		if c.Type != model.CategoryTypeExpense {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(c.Name))
		if _, seen := byLabel[label]; seen {
			continue
		}
		byLabel[label] = c.ID
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return "", nil
	}
	label := e.categorizer.Categorize(ctx, description, labels)
	return byLabel[strings.ToLower(strings.TrimSpace(label))], nil
}

// Transactions lists the user's transactions.
func (e *Engine) Transactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	txns, err := e.store.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}
