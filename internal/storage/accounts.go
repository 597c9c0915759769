package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateUser inserts a user.
func (q *queries) CreateUser(ctx context.Context, user *model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: user", ErrNilParameter)
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return common.NewValidationError("email", "is required")
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = nowUTC()
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.CreatedAt.UTC())
	if err != nil {
		return duplicate(err, "user")
	}
	return nil
}

// GetUser returns a user by id.
func (q *queries) GetUser(ctx context.Context, id string) (*model.User, error) {
	return q.getUser(ctx, "id", id)
}

// GetUserByEmail returns a user by email address.
func (q *queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return q.getUser(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// ListUsers returns every user by creation time.
func (q *queries) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, `SELECT id, email, name, created_at FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (q *queries) getUser(ctx context.Context, column, value string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	var u model.User
	err := q.q.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE `+column+` = ?`, value).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, "user", value)
	}
	return &u, nil
}

const accountColumns = `id, user_id, name, account_type, balance_cents, credit_limit_cents,
	institution, external_id, is_active, created_at`

// CreateAccount inserts an account.
func (q *queries) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateString(account.UserID, "user_id"); err != nil {
		return err
	}
	if strings.TrimSpace(account.Name) == "" {
		return common.NewValidationError("name", "is required")
	}
	if !account.Type.Valid() {
		return common.NewValidationError("account_type", fmt.Sprintf("unknown type %q", account.Type))
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = nowUTC()
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.UserID, account.Name, string(account.Type),
		model.Cents(account.Balance), model.Cents(account.CreditLimit),
		account.Institution, nullString(account.ExternalID), account.IsActive,
		account.CreatedAt.UTC())
	if err != nil {
		return duplicate(err, "account")
	}
	return nil
}

// GetAccount returns one of the user's accounts.
func (q *queries) GetAccount(ctx context.Context, userID, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := q.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND id = ?`, userID, id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

// GetAccountByExternalID returns the account imported under externalID.
func (q *queries) GetAccountByExternalID(ctx context.Context, userID, externalID string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := q.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND external_id = ?`, userID, externalID)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "account", externalID)
	}
	return a, nil
}

// ListAccounts returns every account of the user.
func (q *queries) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// UpdateAccount saves changes to an account's mutable fields.
func (q *queries) UpdateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	res, err := q.q.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, account_type = ?, balance_cents = ?, credit_limit_cents = ?,
			institution = ?, is_active = ?
		WHERE user_id = ? AND id = ?`,
		account.Name, string(account.Type), model.Cents(account.Balance), model.Cents(account.CreditLimit),
		account.Institution, account.IsActive, account.UserID, account.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return checkAffected(res, "account", account.ID)
}

func (q *queries) adjustBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE accounts SET balance_cents = balance_cents + ? WHERE user_id = ? AND id = ?`,
		model.Cents(delta), userID, accountID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	return checkAffected(res, "account", accountID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*model.Account, error) {
	var (
		a           model.Account
		accountType string
		balance     int64
		limit       int64
		externalID  sql.NullString
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &accountType, &balance, &limit,
		&a.Institution, &externalID, &a.IsActive, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Type = model.AccountType(accountType)
	a.Balance = model.FromCents(balance)
	a.CreditLimit = model.FromCents(limit)
	a.ExternalID = externalID.String
	return &a, nil
}
