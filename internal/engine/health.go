package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/finsight/internal/forecast"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/scoring"
	"github.com/Veraticus/finsight/internal/service"
)

// HealthScore computes the user's current health score. When the facts
// cannot be read it returns the degraded base score instead of an error.
func (e *Engine) HealthScore(ctx context.Context, userID string) model.HealthScore {
	now := e.now()
	in, err := e.reader.HealthInputs(ctx, userID, now)
	if err != nil {
		e.logger.Warn("health score degraded", "user_id", userID, "error", err)
		return scoring.Degraded(userID, now)
	}
	return scoring.Compute(userID, in, now)
}

// SnapshotHealthScore computes and persists a health score snapshot.
func (e *Engine) SnapshotHealthScore(ctx context.Context, userID string) (model.HealthScore, error) {
	score := e.HealthScore(ctx, userID)
	if err := e.store.SaveHealthScore(ctx, &score); err != nil {
		return model.HealthScore{}, fmt.Errorf("failed to save health snapshot: %w", err)
	}
	return score, nil
}

// SnapshotAllUsers stores a snapshot for every user. It keeps going past
// individual failures and reports how many succeeded.
func (e *Engine) SnapshotAllUsers(ctx context.Context) (int, error) {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}
	saved := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return saved, ctx.Err()
		}
		if _, err := e.SnapshotHealthScore(ctx, u.ID); err != nil {
			e.logger.Error("failed to snapshot health score", "user_id", u.ID, "error", err)
			continue
		}
		saved++
	}
	return saved, nil
}

// HealthSnapshots returns stored snapshots, newest first.
func (e *Engine) HealthSnapshots(ctx context.Context, userID string, limit int) ([]model.HealthScore, error) {
	scores, err := e.store.ListHealthScores(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list health snapshots: %w", err)
	}
	return scores, nil
}

// healthHistory scores each of the previous calendar months, most recent
// first. Balances and counts are those of today.
func (e *Engine) healthHistory(ctx context.Context, userID string) ([]int, error) {
	month := service.MonthOf(e.now()).Start
	history := make([]int, 0, forecast.HorizonMonths)
	for i := 1; i <= forecast.HorizonMonths; i++ {
		at := month.AddDate(0, -i, 0)
		in, err := e.reader.HealthInputs(ctx, userID, at)
		if err != nil {
			return nil, err
		}
		history = append(history, scoring.Compute(userID, in, at).Overall)
	}
	return history, nil
}

// ForecastHealth projects the health score over the next months.
func (e *Engine) ForecastHealth(ctx context.Context, userID string) model.HealthForecast {
	current := e.HealthScore(ctx, userID)
	if current.Degraded {
		return forecast.Degraded(current.Overall)
	}

	history, err := e.healthHistory(ctx, userID)
	if err != nil {
		e.logger.Warn("health forecast degraded", "user_id", userID, "error", err)
		return forecast.Degraded(current.Overall)
	}

	f := forecast.Health(current.Overall, history, e.jitter)
	f.Predictions = forecast.Improvements(current)
	return f
}

// ForecastSpending projects per-category spending from the last six months.
func (e *Engine) ForecastSpending(ctx context.Context, userID string) model.SpendingForecast {
	patterns, err := e.reader.CategoryPatterns(ctx, userID, e.now())
	if err != nil {
		e.logger.Warn("spending forecast degraded", "user_id", userID, "error", err)
		return forecast.DegradedSpending()
	}
	return forecast.Spending(patterns)
}
