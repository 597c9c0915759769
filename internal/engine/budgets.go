package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/finsight/internal/aggregate"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/progress"
	"github.com/Veraticus/finsight/internal/service"
)

// CreateBudget validates and stores a budget for the user.
func (e *Engine) CreateBudget(ctx context.Context, b *model.Budget) error {
	if b.CategoryID != "" {
		if _, err := e.store.GetCategory(ctx, b.UserID, b.CategoryID); err != nil {
			return err
		}
	}
	if b.StartDate.IsZero() {
		b.StartDate = model.DayOf(e.now())
	}
	b.IsActive = true
	return e.store.CreateBudget(ctx, b)
}

// AddAllocation splits part of a budget onto one category.
func (e *Engine) AddAllocation(ctx context.Context, userID string, a *model.BudgetAllocation) error {
	if _, err := e.store.GetBudget(ctx, userID, a.BudgetID); err != nil {
		return err
	}
	if _, err := e.store.GetCategory(ctx, userID, a.CategoryID); err != nil {
		return err
	}
	return e.store.CreateAllocation(ctx, a)
}

// BudgetStatus reads a budget's progress. The first read at or above the
// alert threshold emits a budget_alert event; the alert re-arms once
// spending falls below the threshold again.
func (e *Engine) BudgetStatus(ctx context.Context, userID, budgetID string) (model.BudgetProgress, error) {
	var status model.BudgetProgress
	err := e.inTx(ctx, func(tx service.Transaction, events *[]model.Event) error {
		b, err := tx.GetBudget(ctx, userID, budgetID)
		if err != nil {
			return err
		}
		status, err = e.budgetStatus(ctx, tx, *b, events)
		return err
	})
	return status, err
}

// BudgetStatuses reads the progress of every budget of the user.
func (e *Engine) BudgetStatuses(ctx context.Context, userID string) ([]model.BudgetProgress, error) {
	var statuses []model.BudgetProgress
	err := e.inTx(ctx, func(tx service.Transaction, events *[]model.Event) error {
		budgets, err := tx.ListBudgets(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list budgets: %w", err)
		}
		statuses = make([]model.BudgetProgress, 0, len(budgets))
		for _, b := range budgets {
			status, err := e.budgetStatus(ctx, tx, b, events)
			if err != nil {
				return err
			}
			statuses = append(statuses, status)
		}
		return nil
	})
	return statuses, err
}

func (e *Engine) budgetStatus(ctx context.Context, tx service.Transaction, b model.Budget, events *[]model.Event) (model.BudgetProgress, error) {
	reader := aggregate.NewReader(tx)
	spent, err := reader.BudgetSpent(ctx, b)
	if err != nil {
		return model.BudgetProgress{}, err
	}
	allocations, err := tx.ListAllocations(ctx, b.ID)
	if err != nil {
		return model.BudgetProgress{}, fmt.Errorf("failed to list allocations: %w", err)
	}
	allocationSpent, err := reader.AllocationSpent(ctx, b, allocations)
	if err != nil {
		return model.BudgetProgress{}, err
	}

	status := progress.Budget(b, spent, allocations, allocationSpent)
	fire, sent := progress.AlertTransition(status)
	if sent != b.AlertSent {
		if err := tx.SetBudgetAlertSent(ctx, b.ID, sent); err != nil {
			return model.BudgetProgress{}, err
		}
		status.Budget.AlertSent = sent
	}
	if fire {
		*events = append(*events, model.Event{
			OccurredAt: e.now(),
			Type:       model.EventBudgetAlert,
			UserID:     b.UserID,
			EntityID:   b.ID,
			Message: fmt.Sprintf("Budget %q has used %.0f%% of %s",
				b.Name, status.SpentPercentage, b.TotalAmount.StringFixed(2)),
		})
	}
	return status, nil
}
