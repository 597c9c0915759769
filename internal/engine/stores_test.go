package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
	"github.com/Veraticus/finsight/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// interleavingStore runs afterList once the auto-contribution candidates
// have been read, standing in for a request that lands mid-run.
type interleavingStore struct {
	service.Storage
	afterList func()
}

func (s *interleavingStore) ListAutoContributeGoals(ctx context.Context) ([]model.Goal, error) {
	goals, err := s.Storage.ListAutoContributeGoals(ctx)
	if err == nil && s.afterList != nil {
		s.afterList()
	}
	return goals, err
}

var errDiskGone = errors.New("disk gone")

// brokenStore fails every aggregate read whose range starts before since.
type brokenStore struct {
	service.Storage
	since time.Time
}

func (s *brokenStore) SumTransactions(ctx context.Context, userID string, typ model.TransactionType, r service.DateRange) (decimal.Decimal, error) {
	if r.Start.Before(s.since) {
		return decimal.Zero, errDiskGone
	}
	return s.Storage.SumTransactions(ctx, userID, typ, r)
}

func (s *brokenStore) CategoryPatterns(ctx context.Context, userID string, r service.DateRange) ([]model.CategoryPattern, error) {
	if r.Start.Before(s.since) {
		return nil, errDiskGone
	}
	return s.Storage.CategoryPatterns(ctx, userID, r)
}

func TestRunAutoContributionsRereadsGoal(t *testing.T) {
	tests := []struct {
		name        string
		interleave  func(ctx context.Context, e *engine.Engine, userID, goalID string) error
		wantStatus  model.GoalStatus
		wantCurrent string
		wantMade    int
		wantAuto    int
	}{
		{
			name: "manual contribution is kept",
			interleave: func(ctx context.Context, e *engine.Engine, userID, goalID string) error {
				_, err := e.Contribute(ctx, userID, goalID, decimal.NewFromInt(300), "bonus")
				return err
			},
			wantStatus:  model.GoalStatusActive,
			wantCurrent: "400.00",
			wantMade:    1,
			wantAuto:    1,
		},
		{
			name: "cancelled goal stays cancelled",
			interleave: func(ctx context.Context, e *engine.Engine, userID, goalID string) error {
				_, err := e.SetGoalStatus(ctx, userID, goalID, model.GoalStatusCancelled)
				return err
			},
			wantStatus:  model.GoalStatusCancelled,
			wantCurrent: "0.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := testutil.SetupTestDB(t)
			now := time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)
			store := &interleavingStore{Storage: db.Storage}
			e := engine.New(store, engine.WithClock(func() time.Time { return now }))

			u := db.User("pat@example.com")
			g := &model.Goal{
				UserID: u.ID, Name: "Rainy day", TargetAmount: testutil.Money(t, "1000"), TargetDate: now.AddDate(1, 0, 0),
				AutoContribute: true, ContributionAmount: testutil.Money(t, "100"), ContributionFrequency: model.FrequencyMonthly,
			}
			require.NoError(t, e.CreateGoal(ctx, g))
			store.afterList = func() {
				require.NoError(t, tt.interleave(ctx, e, u.ID, g.ID))
			}

			made, err := e.RunAutoContributions(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMade, made)

			detail, err := e.Goal(ctx, u.ID, g.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, detail.Progress.Goal.Status)
			assert.Equal(t, tt.wantCurrent, detail.Progress.Goal.CurrentAmount.StringFixed(2))

			ledger := decimal.Zero
			auto := 0
			for _, c := range detail.Contributions {
				ledger = ledger.Add(c.Amount)
				if c.Source == model.ContributionAuto {
					auto++
				}
			}
			assert.Equal(t, tt.wantCurrent, ledger.StringFixed(2), "ledger sum matches the goal total")
			assert.Equal(t, tt.wantAuto, auto)
		})
	}
}

func TestHealthDegradesWhenReadsFail(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	now := time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)
	u := db.User("pat@example.com")
	acct := db.Account(u.ID, model.AccountTypeChecking, "0")
	food := db.Category(u.ID, "Food")
	db.Income(u.ID, acct.ID, "1000", now.AddDate(0, 0, -5))
	db.Expense(u.ID, acct.ID, food.ID, "100", now.AddDate(0, 0, -2))

	t.Run("every read fails", func(t *testing.T) {
		store := &brokenStore{Storage: db.Storage, since: now.AddDate(100, 0, 0)}
		e := engine.New(store, engine.WithClock(func() time.Time { return now }), engine.WithJitter(zeroNoise{}))

		score := e.HealthScore(ctx, u.ID)
		assert.True(t, score.Degraded)
		assert.Equal(t, 50, score.Overall)
		assert.Equal(t, u.ID, score.UserID)

		fc := e.ForecastHealth(ctx, u.ID)
		assert.True(t, fc.Degraded)
		assert.Equal(t, 50, fc.CurrentScore)
		assert.Equal(t, model.TrendStable, fc.TrendLabel)
		assert.Empty(t, fc.Points)
		assert.Empty(t, fc.History)

		spending := e.ForecastSpending(ctx, u.ID)
		assert.True(t, spending.Degraded)
		assert.Empty(t, spending.Predictions)
		assert.True(t, spending.TotalPredicted.IsZero())
	})

	t.Run("only history fails", func(t *testing.T) {
		store := &brokenStore{Storage: db.Storage, since: service.MonthOf(now).Start.AddDate(0, 0, -25)}
		e := engine.New(store, engine.WithClock(func() time.Time { return now }), engine.WithJitter(zeroNoise{}))

		score := e.HealthScore(ctx, u.ID)
		require.False(t, score.Degraded)

		fc := e.ForecastHealth(ctx, u.ID)
		assert.True(t, fc.Degraded)
		assert.Equal(t, score.Overall, fc.CurrentScore, "current score survives a failed history")
		assert.Empty(t, fc.Points)
	})

	t.Run("cancelled context", func(t *testing.T) {
		e := engine.New(db.Storage, engine.WithClock(func() time.Time { return now }))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		assert.True(t, e.HealthScore(cancelled, u.ID).Degraded)
		assert.True(t, e.ForecastSpending(cancelled, u.ID).Degraded)
	})
}
