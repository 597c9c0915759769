package testutil

import (
	"context"
	"time"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// User creates a user with the given email.
func (db *TestDB) User(email string) *model.User {
	db.t.Helper()
	u := &model.User{Email: email, Name: email}
	if err := db.Storage.CreateUser(context.Background(), u); err != nil {
		db.t.Fatalf("failed to seed user %q: %v", email, err)
	}
	return u
}

// Account creates an active account with an opening balance.
func (db *TestDB) Account(userID string, typ model.AccountType, balance string) *model.Account {
	db.t.Helper()
	a := &model.Account{
		UserID:   userID,
		Name:     string(typ),
		Type:     typ,
		Balance:  Money(db.t, balance),
		IsActive: true,
	}
	if err := db.Storage.CreateAccount(context.Background(), a); err != nil {
		db.t.Fatalf("failed to seed account: %v", err)
	}
	return a
}

// CreditAccount creates an active credit account with a limit.
func (db *TestDB) CreditAccount(userID, balance, limit string) *model.Account {
	db.t.Helper()
	a := &model.Account{
		UserID:      userID,
		Name:        "credit card",
		Type:        model.AccountTypeCredit,
		Balance:     Money(db.t, balance),
		CreditLimit: Money(db.t, limit),
		IsActive:    true,
	}
	if err := db.Storage.CreateAccount(context.Background(), a); err != nil {
		db.t.Fatalf("failed to seed credit account: %v", err)
	}
	return a
}

// Category creates an expense category.
func (db *TestDB) Category(userID, name string) *model.Category {
	db.t.Helper()
	c := &model.Category{UserID: userID, Name: name, Type: model.CategoryTypeExpense}
	if err := db.Storage.CreateCategory(context.Background(), c); err != nil {
		db.t.Fatalf("failed to seed category %q: %v", name, err)
	}
	return c
}

// Income records an income transaction.
func (db *TestDB) Income(userID, accountID, amount string, date time.Time) *model.Transaction {
	db.t.Helper()
	return db.transaction(&model.Transaction{
		UserID: userID, AccountID: accountID, Amount: Money(db.t, amount),
		Type: model.TransactionTypeIncome, Date: date, Description: "income " + amount,
	})
}

// Expense records an expense transaction, optionally categorized.
func (db *TestDB) Expense(userID, accountID, categoryID, amount string, date time.Time) *model.Transaction {
	db.t.Helper()
	return db.transaction(&model.Transaction{
		UserID: userID, AccountID: accountID, CategoryID: categoryID, Amount: Money(db.t, amount),
		Type: model.TransactionTypeExpense, Date: date,
		Description: "expense " + categoryID + " " + amount + " " + date.Format(time.RFC3339),
	})
}

func (db *TestDB) transaction(txn *model.Transaction) *model.Transaction {
	db.t.Helper()
	if _, err := db.Storage.SaveTransaction(context.Background(), txn); err != nil {
		db.t.Fatalf("failed to seed transaction: %v", err)
	}
	return txn
}

// Budget creates an active monthly budget starting at start.
func (db *TestDB) Budget(userID, categoryID, total string, start time.Time) *model.Budget {
	db.t.Helper()
	b := &model.Budget{
		UserID:       userID,
		Name:         "budget " + total,
		CategoryID:   categoryID,
		Period:       model.BudgetPeriodMonthly,
		TotalAmount:  Money(db.t, total),
		StartDate:    start,
		AlertEnabled: true,
		IsActive:     true,
	}
	if err := db.Storage.CreateBudget(context.Background(), b); err != nil {
		db.t.Fatalf("failed to seed budget: %v", err)
	}
	return b
}

// Goal creates an active goal due a year after now.
func (db *TestDB) Goal(userID, target string, now time.Time) *model.Goal {
	db.t.Helper()
	g := &model.Goal{
		UserID:       userID,
		Name:         "goal " + target,
		TargetAmount: Money(db.t, target),
		TargetDate:   now.AddDate(1, 0, 0),
		Status:       model.GoalStatusActive,
		IsActive:     true,
	}
	if err := db.Storage.CreateGoal(context.Background(), g); err != nil {
		db.t.Fatalf("failed to seed goal: %v", err)
	}
	return g
}

// Money parses a decimal literal or fails the test.
func Money(t interface {
	Helper()
	Fatalf(string, ...any)
}, s string,
) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad money literal %q: %v", s, err)
	}
	return d
}
