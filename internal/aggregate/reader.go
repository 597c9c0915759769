// Package aggregate reads windowed sums and counts from the store and turns
// them into the inputs of the scoring and forecasting functions.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/finsight/internal/forecast"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
	"github.com/shopspring/decimal"
)

// Store is the subset of storage the reader queries.
type Store interface {
	service.AccountStore
	service.TransactionStore
	service.BudgetStore
	service.GoalStore
}

// Reader aggregates stored records. It never writes.
type Reader struct {
	store Store
}

// NewReader creates a reader over store.
func NewReader(store Store) *Reader {
	return &Reader{store: store}
}

// HealthInputs collects the facts for the calendar month containing at.
// Balances and counts reflect the current state of the store.
func (r *Reader) HealthInputs(ctx context.Context, userID string, at time.Time) (model.HealthInputs, error) {
	window := service.MonthOf(at)
	in := model.HealthInputs{WindowStart: window.Start, WindowEnd: window.End}

	income, err := r.store.SumTransactions(ctx, userID, model.TransactionTypeIncome, window)
	if err != nil {
		return in, fmt.Errorf("failed to sum income: %w", err)
	}
	expenses, err := r.store.SumExpenses(ctx, userID, "", window)
	if err != nil {
		return in, fmt.Errorf("failed to sum expenses: %w", err)
	}
	in.MonthlyIncome, in.MonthlyExpenses = income, expenses

	if err := r.accountFacts(ctx, userID, &in); err != nil {
		return in, err
	}
	if err := r.budgetFacts(ctx, userID, at, &in); err != nil {
		return in, err
	}

	goals, err := r.store.ListGoals(ctx, userID)
	if err != nil {
		return in, fmt.Errorf("failed to list goals: %w", err)
	}
	for _, g := range goals {
		if g.Status == model.GoalStatusActive {
			in.ActiveGoalCount++
		}
	}
	return in, nil
}

func (r *Reader) accountFacts(ctx context.Context, userID string, in *model.HealthInputs) error {
	accounts, err := r.store.ListAccounts(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	types := make(map[model.AccountType]struct{})
	for i := range accounts {
		a := &accounts[i]
		if !a.IsActive {
			continue
		}
		in.ActiveAccountCount++
		types[a.Type] = struct{}{}
		switch {
		case a.IsLiquid():
			in.LiquidBalance = in.LiquidBalance.Add(a.Balance)
		case a.IsLiability():
			in.LiabilityBalance = in.LiabilityBalance.Add(a.Owed())
		}
		if a.Type == model.AccountTypeCredit {
			in.CreditBalance = in.CreditBalance.Add(a.Owed())
			in.CreditLimit = in.CreditLimit.Add(a.CreditLimit)
		}
	}
	in.AccountTypeCount = len(types)
	return nil
}

func (r *Reader) budgetFacts(ctx context.Context, userID string, at time.Time, in *model.HealthInputs) error {
	budgets, err := r.store.ListBudgets(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list budgets: %w", err)
	}
	for i := range budgets {
		b := &budgets[i]
		if !b.IsCurrent(at) {
			continue
		}
		in.ActiveBudgetCount++
		spent, err := r.BudgetSpent(ctx, *b)
		if err != nil {
			return err
		}
		in.BudgetAllocated = in.BudgetAllocated.Add(b.TotalAmount)
		in.BudgetSpent = in.BudgetSpent.Add(spent)
	}
	return nil
}

// BudgetWindow is the half-open range covering every day of the budget.
func BudgetWindow(b model.Budget) service.DateRange {
	return service.DateRange{
		Start: model.DayOf(b.StartDate),
		End:   model.DayOf(b.EndDate).AddDate(0, 0, 1),
	}
}

// BudgetSpent totals the expenses counted against b.
func (r *Reader) BudgetSpent(ctx context.Context, b model.Budget) (decimal.Decimal, error) {
	spent, err := r.store.SumExpenses(ctx, b.UserID, b.CategoryID, BudgetWindow(b))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum spending for budget %s: %w", b.ID, err)
	}
	return spent, nil
}

// AllocationSpent totals expenses per allocated category inside b's window.
func (r *Reader) AllocationSpent(ctx context.Context, b model.Budget, allocations []model.BudgetAllocation) (map[string]decimal.Decimal, error) {
	spent := make(map[string]decimal.Decimal, len(allocations))
	window := BudgetWindow(b)
	for _, a := range allocations {
		amount, err := r.store.SumExpenses(ctx, b.UserID, a.CategoryID, window)
		if err != nil {
			return nil, fmt.Errorf("failed to sum spending for allocation %s: %w", a.ID, err)
		}
		spent[a.CategoryID] = amount
	}
	return spent, nil
}

// CategoryPatterns summarizes categorized expenses over the spending
// forecast window ending at now.
func (r *Reader) CategoryPatterns(ctx context.Context, userID string, now time.Time) ([]model.CategoryPattern, error) {
	window := service.DateRange{Start: now.AddDate(0, 0, -forecast.WindowDays), End: now}
	patterns, err := r.store.CategoryPatterns(ctx, userID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to read category patterns: %w", err)
	}
	return patterns, nil
}

// MonthlySpending totals the expenses of the month containing at.
func (r *Reader) MonthlySpending(ctx context.Context, userID string, at time.Time) (decimal.Decimal, error) {
	spent, err := r.store.SumExpenses(ctx, userID, "", service.MonthOf(at))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum monthly spending: %w", err)
	}
	return spent, nil
}
