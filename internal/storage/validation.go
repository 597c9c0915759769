// Package storage provides the SQLite persistence layer.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/mattn/go-sqlite3"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDateRange = errors.New("start date must be before end date")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s: %w", ErrEmptyString, paramName, common.ErrValidation)
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := validateString(txn.UserID, "user_id"); err != nil {
		return err
	}
	if err := validateString(txn.AccountID, "account_id"); err != nil {
		return err
	}
	if txn.Date.IsZero() {
		return common.NewValidationError("date", "is required")
	}
	if txn.Amount.IsNegative() {
		return common.NewValidationError("amount", "cannot be negative")
	}
	if !txn.Type.Valid() {
		return common.NewValidationError("transaction_type", fmt.Sprintf("unknown type %q", txn.Type))
	}
	if txn.Type == model.TransactionTypeTransfer && txn.DestinationAccountID == "" {
		return common.NewValidationError("destination_account_id", "is required for transfers")
	}
	return nil
}

// notFound maps sql.ErrNoRows to a wrapped common.ErrNotFound.
func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.NotFoundError(kind, id)
	}
	return fmt.Errorf("failed to get %s: %w", kind, err)
}

// duplicate maps unique constraint violations to common.ErrDuplicateEntry.
func duplicate(err error, what string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w", what, common.ErrDuplicateEntry)
	}
	return fmt.Errorf("failed to save %s: %w", what, err)
}

// checkAffected turns an update that touched no rows into a not found error.
func checkAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return common.NotFoundError(kind, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
