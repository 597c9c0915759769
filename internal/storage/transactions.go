package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, user_id, account_id, destination_account_id, category_id,
	amount_cents, transaction_type, date, description, merchant, is_recurring, hash, created_at`

// SaveTransaction inserts a transaction and adjusts balances atomically.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	var inserted bool
	err := s.inTx(ctx, func(q *queries) error {
		var err error
		inserted, err = q.SaveTransaction(ctx, txn)
		return err
	})
	return inserted, err
}

// SaveTransaction inserts txn unless its hash is already stored, then
// applies its balance change to the affected accounts.
func (q *queries) SaveTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateTransaction(txn); err != nil {
		return false, err
	}
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.Hash == "" {
		txn.Hash = txn.GenerateHash()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = nowUTC()
	}

	res, err := q.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, txn.AccountID, nullString(txn.DestinationAccountID), nullString(txn.CategoryID),
		model.Cents(txn.Amount), string(txn.Type), txn.Date.UTC(), txn.Description, txn.Merchant,
		txn.IsRecurring, txn.Hash, txn.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := q.adjustBalance(ctx, txn.UserID, txn.AccountID, txn.BalanceDelta()); err != nil {
		return false, err
	}
	if txn.Type == model.TransactionTypeTransfer {
		if err := q.adjustBalance(ctx, txn.UserID, txn.DestinationAccountID, txn.Amount); err != nil {
			return false, err
		}
	}
	return true, nil
}

// GetTransaction returns one of the user's transactions.
func (q *queries) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := q.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return t, nil
}

// ListTransactions returns the user's transactions, newest first.
func (q *queries) ListTransactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.EndDate, *filter.StartDate)
	}

	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if filter.StartDate != nil {
		where = append(where, "date >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		where = append(where, "date < ?")
		args = append(args, filter.EndDate.UTC())
	}
	if filter.AccountID != "" {
		where = append(where, "(account_id = ? OR destination_account_id = ?)")
		args = append(args, filter.AccountID, filter.AccountID)
	}
	if filter.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.Type != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, string(filter.Type))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// UpdateTransactionCategory assigns a category to a transaction.
func (q *queries) UpdateTransactionCategory(ctx context.Context, userID, id, categoryID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	res, err := q.q.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE user_id = ? AND id = ?`,
		nullString(categoryID), userID, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	return checkAffected(res, "transaction", id)
}

// CountTransactions counts the user's transactions.
func (q *queries) CountTransactions(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// SumTransactions totals transactions of one type inside r.
func (q *queries) SumTransactions(ctx context.Context, userID string, typ model.TransactionType, r service.DateRange) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}
	var cents int64
	err := q.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND transaction_type = ? AND date >= ? AND date < ?`,
		userID, string(typ), r.Start.UTC(), r.End.UTC()).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return model.FromCents(cents), nil
}

// SumExpenses totals expenses inside r, optionally limited to one category.
func (q *queries) SumExpenses(ctx context.Context, userID, categoryID string, r service.DateRange) (decimal.Decimal, error) {
	if categoryID == "" {
		return q.SumTransactions(ctx, userID, model.TransactionTypeExpense, r)
	}
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}
	var cents int64
	err := q.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND transaction_type = 'expense' AND category_id = ?
			AND date >= ? AND date < ?`,
		userID, categoryID, r.Start.UTC(), r.End.UTC()).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return model.FromCents(cents), nil
}

// CategoryPatterns summarizes categorized expenses per category inside r.
func (q *queries) CategoryPatterns(ctx context.Context, userID string, r service.DateRange) ([]model.CategoryPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT c.name, COUNT(t.id), SUM(t.amount_cents)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.transaction_type = 'expense' AND c.category_type = 'expense'
			AND t.date >= ? AND t.date < ?
		GROUP BY c.id, c.name
		ORDER BY c.name`,
		userID, r.Start.UTC(), r.End.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query category patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.CategoryPattern
	for rows.Next() {
		var (
			p     model.CategoryPattern
			cents int64
		)
		if err := rows.Scan(&p.Category, &p.Count, &cents); err != nil {
			return nil, fmt.Errorf("failed to scan category pattern: %w", err)
		}
		p.Total = model.FromCents(cents)
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

func scanTransaction(s scanner) (*model.Transaction, error) {
	var (
		t           model.Transaction
		destination sql.NullString
		category    sql.NullString
		cents       int64
		typ         string
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.AccountID, &destination, &category,
		&cents, &typ, &t.Date, &t.Description, &t.Merchant, &t.IsRecurring, &t.Hash, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.DestinationAccountID = destination.String
	t.CategoryID = category.String
	t.Amount = model.FromCents(cents)
	t.Type = model.TransactionType(typ)
	return &t, nil
}
