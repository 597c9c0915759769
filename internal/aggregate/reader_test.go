package aggregate_test

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/finsight/internal/aggregate"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthInputs(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	u := db.User("pat@example.com")
	now := time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)

	checking := db.Account(u.ID, model.AccountTypeChecking, "1000")
	db.Account(u.ID, model.AccountTypeSavings, "2000")
	db.CreditAccount(u.ID, "-500", "2000")
	db.Account(u.ID, model.AccountTypeLoan, "3000")
	inactive := &model.Account{UserID: u.ID, Name: "old", Type: model.AccountTypeInvestment, Balance: testutil.Money(t, "999")}
	require.NoError(t, db.Storage.CreateAccount(ctx, inactive))

	food := db.Category(u.ID, "Food")
	db.Income(u.ID, checking.ID, "4000", now.AddDate(0, 0, -10))
	db.Expense(u.ID, checking.ID, food.ID, "600", now.AddDate(0, 0, -5))
	db.Expense(u.ID, checking.ID, "", "400", now.AddDate(0, 0, -3))
	db.Expense(u.ID, checking.ID, food.ID, "75", now.AddDate(0, -1, 0)) // May

	db.Budget(u.ID, food.ID, "1000", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	db.Budget(u.ID, "", "500", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) // ended in April
	db.Goal(u.ID, "5000", now)

	in, err := aggregate.NewReader(db.Storage).HealthInputs(ctx, u.ID, now)
	require.NoError(t, err)

	assert.True(t, in.WindowStart.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "4000.00", in.MonthlyIncome.StringFixed(2))
	assert.Equal(t, "1000.00", in.MonthlyExpenses.StringFixed(2))

	// checking 1000 + 4000 - 600 - 400 - 75, plus savings 2000
	assert.Equal(t, "5925.00", in.LiquidBalance.StringFixed(2))
	assert.Equal(t, "3500.00", in.LiabilityBalance.StringFixed(2))
	assert.Equal(t, "500.00", in.CreditBalance.StringFixed(2))
	assert.Equal(t, "2000.00", in.CreditLimit.StringFixed(2))
	assert.Equal(t, 4, in.ActiveAccountCount)
	assert.Equal(t, 4, in.AccountTypeCount)

	assert.Equal(t, 1, in.ActiveBudgetCount)
	assert.Equal(t, "1000.00", in.BudgetAllocated.StringFixed(2))
	assert.Equal(t, "600.00", in.BudgetSpent.StringFixed(2))
	assert.Equal(t, 1, in.ActiveGoalCount)
}

func TestBudgetSpentCoversWholeLastDay(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	u := db.User("pat@example.com")
	acct := db.Account(u.ID, model.AccountTypeChecking, "0")
	food := db.Category(u.ID, "Food")
	other := db.Category(u.ID, "Other")

	b := db.Budget(u.ID, food.ID, "300", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	db.Expense(u.ID, acct.ID, food.ID, "10", time.Date(2024, 2, 29, 22, 0, 0, 0, time.UTC))
	db.Expense(u.ID, acct.ID, food.ID, "20", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	db.Expense(u.ID, acct.ID, other.ID, "40", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

	reader := aggregate.NewReader(db.Storage)
	spent, err := reader.BudgetSpent(ctx, *b)
	require.NoError(t, err)
	assert.Equal(t, "10.00", spent.StringFixed(2))

	whole := *b
	whole.CategoryID = ""
	spent, err = reader.BudgetSpent(ctx, whole)
	require.NoError(t, err)
	assert.Equal(t, "50.00", spent.StringFixed(2))

	perCategory, err := reader.AllocationSpent(ctx, *b, []model.BudgetAllocation{
		{ID: "a1", CategoryID: food.ID}, {ID: "a2", CategoryID: other.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "10.00", perCategory[food.ID].StringFixed(2))
	assert.Equal(t, "40.00", perCategory[other.ID].StringFixed(2))
}

func TestCategoryPatternsWindow(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	u := db.User("pat@example.com")
	acct := db.Account(u.ID, model.AccountTypeChecking, "0")
	coffee := db.Category(u.ID, "Coffee")
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		db.Expense(u.ID, acct.ID, coffee.ID, "4.50", now.AddDate(0, 0, -i*7))
	}
	db.Expense(u.ID, acct.ID, coffee.ID, "100", now.AddDate(0, 0, -200))
	db.Expense(u.ID, acct.ID, "", "12", now.AddDate(0, 0, -1))

	patterns, err := aggregate.NewReader(db.Storage).CategoryPatterns(ctx, u.ID, now)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "Coffee", patterns[0].Category)
	assert.Equal(t, 3, patterns[0].Count)
	assert.Equal(t, "13.50", patterns[0].Total.StringFixed(2))
}
