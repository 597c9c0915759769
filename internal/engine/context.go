package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/progress"
	"github.com/Veraticus/finsight/internal/service"
)

// Sizes of the lists in a financial context.
const (
	ContextTransactions = 5
	ContextBudgets      = 3
	ContextGoals        = 3
)

// FinancialContext gathers the summary handed to the AI assistant. It only
// reads; budget alerts are not evaluated.
func (e *Engine) FinancialContext(ctx context.Context, userID string) (*model.FinancialContext, error) {
	now := e.now()
	spending, err := e.reader.MonthlySpending(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	recent, err := e.store.ListTransactions(ctx, userID, service.TransactionFilter{Limit: ContextTransactions})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	accounts, err := e.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	txnCount, err := e.store.CountTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	budgets, err := e.budgetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	goals, err := e.goalProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	fc := &model.FinancialContext{
		MonthlySpending:    spending,
		RecentTransactions: recent,
		AccountCount:       len(accounts),
		TransactionCount:   txnCount,
		BudgetCount:        len(budgets),
		GoalCount:          len(goals),
		Budgets:            budgets[:min(len(budgets), ContextBudgets)],
		Goals:              goals[:min(len(goals), ContextGoals)],
	}
	return fc, nil
}

// Report assembles the full financial report used for exports.
func (e *Engine) Report(ctx context.Context, userID string) (*model.FinancialReport, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	budgets, err := e.budgetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	goals, err := e.goalProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.FinancialReport{
		GeneratedAt: e.now(),
		User:        *user,
		Health:      e.HealthScore(ctx, userID),
		Spending:    e.ForecastSpending(ctx, userID),
		Budgets:     budgets,
		Goals:       goals,
	}, nil
}

// budgetProgress derives progress for every budget without touching alert
// state.
func (e *Engine) budgetProgress(ctx context.Context, userID string) ([]model.BudgetProgress, error) {
	budgets, err := e.store.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	out := make([]model.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		spent, err := e.reader.BudgetSpent(ctx, b)
		if err != nil {
			return nil, err
		}
		allocations, err := e.store.ListAllocations(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list allocations: %w", err)
		}
		allocationSpent, err := e.reader.AllocationSpent(ctx, b, allocations)
		if err != nil {
			return nil, err
		}
		out = append(out, progress.Budget(b, spent, allocations, allocationSpent))
	}
	return out, nil
}

// Goals returns progress for every goal of the user.
func (e *Engine) Goals(ctx context.Context, userID string) ([]model.GoalProgress, error) {
	return e.goalProgress(ctx, userID)
}

func (e *Engine) goalProgress(ctx context.Context, userID string) ([]model.GoalProgress, error) {
	goals, err := e.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	out := make([]model.GoalProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, model.NewGoalProgress(g))
	}
	return out, nil
}
