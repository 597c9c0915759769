package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/llm"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	db     *testutil.TestDB
	engine *engine.Engine
	server *Server
	user   *model.User
	token  string
	now    time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		db:  testutil.SetupTestDB(t),
		now: time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.engine = engine.New(f.db.Storage, engine.WithClock(clock))
	f.server = New(f.engine, testSecret, append([]Option{WithClock(clock)}, opts...)...)
	f.user = f.db.User("pat@example.com")

	var err error
	f.token, err = IssueToken(testSecret, f.user.ID, time.Hour, f.now)
	require.NoError(t, err)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return f.doAs(t, f.token, method, path, body)
}

func (f *fixture) doAs(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)
	token, err := IssueToken(testSecret, "user-1", time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token, func() time.Time { return now.Add(30 * time.Minute) })
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	_, err = ParseToken([]byte("another-secret-entirely"), token, func() time.Time { return now })
	require.Error(t, err)

	_, err = ParseToken(testSecret, token, func() time.Time { return now.Add(2 * time.Hour) })
	require.Error(t, err)

	_, err = IssueToken(testSecret, "", time.Hour, now)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)

	expired, err := IssueToken(testSecret, f.user.ID, time.Hour, f.now.Add(-3*time.Hour))
	require.NoError(t, err)
	stranger, err := IssueToken(testSecret, "no-such-user", time.Hour, f.now)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not.a.jwt", http.StatusUnauthorized},
		{"expired token", expired, http.StatusUnauthorized},
		{"unknown user", stranger, http.StatusUnauthorized},
		{"valid token", f.token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.doAs(t, tt.token, http.MethodGet, "/api/me", nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	me := decodeAs[model.User](t, f.do(t, http.MethodGet, "/api/me", nil))
	assert.Equal(t, "pat@example.com", me.Email)

	rec := f.doAs(t, "", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{common.NewValidationError("name", "is required"), http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", common.NotFoundError("goal", "g1")), http.StatusNotFound},
		{fmt.Errorf("insert: %w", common.ErrDuplicateEntry), http.StatusConflict},
		{fmt.Errorf("categorizer: %w", common.ErrMissingConfig), http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	f.server.writeError(rec, req, errors.New("sqlite: database disk image is malformed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeAs[errorResponse](t, rec).Error)
}

func TestAccountsAndTransactions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/accounts", map[string]any{"name": "Everyday", "account_type": "checking", "balance": "100"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decodeAs[model.Account](t, rec)
	assert.True(t, account.IsActive)

	rec = f.do(t, http.MethodPost, "/api/accounts", map[string]any{"name": "Odd", "account_type": "piggybank"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/accounts", map[string]any{"name": "Odd", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	txn := map[string]any{
		"date": "2024-06-18", "amount": "25.50", "account_id": account.ID,
		"transaction_type": "expense", "description": "Corner cafe",
	}
	rec = f.do(t, http.MethodPost, "/api/transactions", txn)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.False(t, decodeAs[transactionResponse](t, rec).Duplicate)

	rec = f.do(t, http.MethodPost, "/api/transactions", txn)
	require.Equal(t, http.StatusCreated, rec.Code, "a second identical purchase is its own entry")
	assert.False(t, decodeAs[transactionResponse](t, rec).Duplicate)

	txn["idempotency_key"] = "cafe-retry-1"
	rec = f.do(t, http.MethodPost, "/api/transactions", txn)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	delete(txn, "idempotency_key")
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(txn))
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", &buf)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Idempotency-Key", "cafe-retry-1")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "a retried key is recorded once")
	assert.True(t, decodeAs[transactionResponse](t, rec).Duplicate)

	rec = f.do(t, http.MethodGet, "/api/accounts/"+account.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "23.50", decodeAs[model.Account](t, rec).Balance.StringFixed(2))

	rec = f.do(t, http.MethodGet, "/api/transactions?type=expense&start=2024-06-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]model.Transaction](t, rec), 3)

	rec = f.do(t, http.MethodGet, "/api/transactions?start=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/accounts/"+account.ID, map[string]any{"name": "Main", "is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeAs[model.Account](t, rec)
	assert.Equal(t, "Main", updated.Name)
	assert.False(t, updated.IsActive)

	other := f.db.User("sam@example.com")
	theirs := f.db.Account(other.ID, model.AccountTypeSavings, "10")
	rec = f.do(t, http.MethodGet, "/api/accounts/"+theirs.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "accounts of other users are invisible")
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	account := f.db.Account(f.user.ID, model.AccountTypeChecking, "0")

	rec := f.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "Food", "category_type": "expense"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	food := decodeAs[model.Category](t, rec)

	txn := f.db.Expense(f.user.ID, account.ID, "", "12", f.now)
	rec = f.do(t, http.MethodPut, "/api/transactions/"+txn.ID+"/category", map[string]any{"category_id": food.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, food.ID, decodeAs[model.Transaction](t, rec).CategoryID)

	rec = f.do(t, http.MethodPut, "/api/transactions/"+txn.ID+"/category", map[string]any{"category_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/categories/"+food.ID, map[string]any{"name": "Groceries", "category_type": "expense"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Groceries", decodeAs[model.Category](t, rec).Name)

	rec = f.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]model.Category](t, rec), 1)
}

func TestBudgets(t *testing.T) {
	f := newFixture(t)
	food := f.db.Category(f.user.ID, "Food")
	account := f.db.Account(f.user.ID, model.AccountTypeChecking, "0")
	f.db.Expense(f.user.ID, account.ID, food.ID, "150", f.now.AddDate(0, 0, -1))

	rec := f.do(t, http.MethodPost, "/api/budgets", map[string]any{
		"name": "Food", "category_id": food.ID, "period": "monthly",
		"total_amount": "500", "start_date": "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	budget := decodeAs[model.Budget](t, rec)
	assert.True(t, budget.AlertEnabled)

	rec = f.do(t, http.MethodPost, "/api/budgets", map[string]any{"name": "Bad", "period": "fortnightly", "total_amount": "10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/budgets/"+budget.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeAs[model.BudgetProgress](t, rec)
	assert.Equal(t, "150.00", status.Spent.StringFixed(2))
	assert.Equal(t, "350.00", status.Remaining.StringFixed(2))

	rec = f.do(t, http.MethodPost, "/api/budgets/"+budget.ID+"/allocations", map[string]any{"category_id": food.ID, "allocated_amount": "200"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/budgets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	statuses := decodeAs[[]model.BudgetProgress](t, rec)
	require.Len(t, statuses, 1)
	assert.Len(t, statuses[0].Allocations, 1)

	rec = f.do(t, http.MethodGet, "/api/budgets/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGoals(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/goals", map[string]any{
		"name": "Emergency fund", "target_amount": "1000", "target_date": "2025-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goal := decodeAs[model.GoalProgress](t, rec).Goal
	assert.Equal(t, model.GoalStatusActive, goal.Status)

	rec = f.do(t, http.MethodPost, "/api/goals", map[string]any{"name": "Past", "target_amount": "10", "target_date": "2020-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/goals/"+goal.ID+"/milestones", map[string]any{"name": "Halfway", "target_percentage": "50"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/goals/"+goal.ID+"/contributions", map[string]any{"amount": "600", "description": "bonus"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Goal          model.Goal            `json:"goal"`
		NewlyAchieved []model.GoalMilestone `json:"newly_achieved"`
		Completed     bool                  `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "600.00", out.Goal.CurrentAmount.StringFixed(2))
	assert.Len(t, out.NewlyAchieved, 1)
	assert.False(t, out.Completed)

	rec = f.do(t, http.MethodPost, "/api/goals/"+goal.ID+"/contributions", map[string]any{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/goals/"+goal.ID+"/status", map[string]any{"status": "paused"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/goals/"+goal.ID+"/status", map[string]any{"status": "exploded"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/goals/"+goal.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeAs[engine.GoalDetail](t, rec)
	assert.Equal(t, model.GoalStatusPaused, detail.Progress.Goal.Status)
	assert.Len(t, detail.Contributions, 1)
	assert.Len(t, detail.Milestones, 1)

	rec = f.do(t, http.MethodGet, "/api/goals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]model.GoalProgress](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/api/goals/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndForecasts(t *testing.T) {
	f := newFixture(t)
	account := f.db.Account(f.user.ID, model.AccountTypeChecking, "0")
	food := f.db.Category(f.user.ID, "Food")
	f.db.Income(f.user.ID, account.ID, "1000", f.now.AddDate(0, 0, -5))
	f.db.Expense(f.user.ID, account.ID, food.ID, "100", f.now.AddDate(0, 0, -2))

	rec := f.do(t, http.MethodGet, "/api/health/score", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	score := decodeAs[model.HealthScore](t, rec)
	assert.False(t, score.Degraded)
	assert.Positive(t, score.Overall)

	rec = f.do(t, http.MethodPost, "/api/health/snapshots", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/health/snapshots?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]model.HealthScore](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/api/health/snapshots?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/health/forecast", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[model.HealthForecast](t, rec).Points, 3)

	rec = f.do(t, http.MethodGet, "/api/forecast/spending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	spending := decodeAs[model.SpendingForecast](t, rec)
	require.NotEmpty(t, spending.Predictions)
	assert.Equal(t, "Food", spending.Predictions[0].Category)

	rec = f.do(t, http.MethodGet, "/api/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.user.ID, decodeAs[model.FinancialReport](t, rec).User.ID)
}

func TestLearning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	course := &model.Course{Title: "Budgeting 101", IsPublished: true}
	require.NoError(t, f.db.Storage.CreateCourse(ctx, course))
	lesson := &model.Lesson{CourseID: course.ID, Title: "Why budget", Position: 1}
	require.NoError(t, f.db.Storage.CreateLesson(ctx, lesson))

	rec := f.do(t, http.MethodPost, "/api/learning/lessons/"+lesson.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeAs[engine.LessonResult](t, rec)
	assert.Equal(t, model.CourseCompleted, result.Progress.Status)
	assert.Equal(t, 1, result.Streak.CurrentStreak)

	rec = f.do(t, http.MethodPost, "/api/learning/lessons/missing/complete", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/learning/courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	courses := decodeAs[[]courseView](t, rec)
	require.Len(t, courses, 1)
	require.NotNil(t, courses[0].Progress)
	assert.InDelta(t, 100.0, courses[0].Progress.CompletionPercentage, 0.001)

	rec = f.do(t, http.MethodGet, "/api/learning/achievements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	earned := map[string]bool{}
	for _, a := range decodeAs[[]achievementView](t, rec) {
		earned[a.Code] = a.Earned != nil
	}
	assert.True(t, earned[model.AchievementFirstLesson])
	assert.False(t, earned[model.AchievementMonthStreak])

	rec = f.do(t, http.MethodGet, "/api/learning/streak", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeAs[model.LearningStreak](t, rec).LongestStreak)

	rec = f.do(t, http.MethodGet, "/api/learning", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, decodeAs[engine.LearningSummary](t, rec).Points)
}

func TestAIWithoutAssistant(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/ai/insights", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	account := f.db.Account(f.user.ID, model.AccountTypeChecking, "0")
	txn := f.db.Expense(f.user.ID, account.ID, "", "9", f.now)
	rec = f.do(t, http.MethodPost, "/api/ai/categorize", map[string]any{"transaction_id": txn.ID})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/ai/context", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAIWithAssistant(t *testing.T) {
	client := &llm.MockClient{Replies: []string{
		"1. Cut dining out\n2. Automate savings",
		"Start with a small emergency fund.",
		"Aim for one month of expenses first.",
	}}
	assistant := llm.NewAssistant(client, llm.Config{MaxRetries: 1}, nil)
	f := newFixture(t, WithAssistant(assistant))

	rec := f.do(t, http.MethodGet, "/api/ai/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	insights := decodeAs[map[string][]string](t, rec)["insights"]
	assert.Equal(t, []string{"Cut dining out", "Automate savings"}, insights)

	rec = f.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/ai/chat/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeAs[map[string][]model.Conversation](t, rec)["conversations"])

	rec = f.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"message": "Where do I start?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeAs[engine.ChatTurn](t, rec)
	require.NotEmpty(t, first.ConversationID)
	assert.Equal(t, "Start with a small emergency fund.", first.Reply.Content)
	assert.Contains(t, client.Prompts[1], "Where do I start?")

	rec = f.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"message": "How big?", "conversation_id": first.ConversationID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decodeAs[engine.ChatTurn](t, rec)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Contains(t, client.Prompts[2], "Assistant: Start with a small emergency fund.", "earlier turns reach the model")

	rec = f.do(t, http.MethodGet, "/api/ai/chat/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	convs := decodeAs[map[string][]model.Conversation](t, rec)["conversations"]
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 4)
	assert.Equal(t, model.ChatRoleUser, convs[0].Messages[0].Role)
	assert.Equal(t, "Where do I start?", convs[0].Messages[0].Content)
	assert.Equal(t, "Aim for one month of expenses first.", convs[0].Messages[3].Content)

	other := f.db.User("sam@example.com")
	token, err := IssueToken(testSecret, other.ID, time.Hour, f.now)
	require.NoError(t, err)
	rec = f.doAs(t, token, http.MethodGet, "/api/ai/chat/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeAs[map[string][]model.Conversation](t, rec)["conversations"], "history is per user")
}

func TestGoalTemplates(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/goals/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	system := decodeAs[[]model.GoalTemplate](t, rec)
	require.NotEmpty(t, system)
	for _, tpl := range system {
		assert.True(t, tpl.IsSystemTemplate)
	}

	rec = f.do(t, http.MethodPost, "/api/goals/templates", map[string]any{
		"name": "Wedding", "default_target_amount": "12000", "suggested_duration_days": 540,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wedding := decodeAs[model.GoalTemplate](t, rec)
	assert.False(t, wedding.IsSystemTemplate)

	rec = f.do(t, http.MethodPost, "/api/goals/from-template", map[string]any{"template_id": "tpl-emergency-fund"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	emergency := decodeAs[model.GoalProgress](t, rec)
	assert.Equal(t, "Emergency Fund", emergency.Goal.Name)
	assert.Equal(t, "10000.00", emergency.Goal.TargetAmount.StringFixed(2))
	assert.True(t, emergency.Goal.TargetDate.Equal(f.now.AddDate(0, 0, 365)))

	rec = f.do(t, http.MethodPost, "/api/goals/from-template", map[string]any{
		"template_id": wedding.ID, "name": "Our wedding", "target_amount": "15000", "target_date": "2026-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ours := decodeAs[model.GoalProgress](t, rec)
	assert.Equal(t, "Our wedding", ours.Goal.Name)
	assert.Equal(t, "15000.00", ours.Goal.TargetAmount.StringFixed(2))

	rec = f.do(t, http.MethodGet, "/api/goals/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, tpl := range decodeAs[[]model.GoalTemplate](t, rec) {
		if tpl.ID == "tpl-emergency-fund" || tpl.ID == wedding.ID {
			assert.Equal(t, 1, tpl.UsageCount, tpl.Name)
		}
	}

	rec = f.do(t, http.MethodPost, "/api/goals/from-template", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/goals/from-template", map[string]any{"template_id": "tpl-emergency-fund", "target_date": "2020-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "target date in the past")

	other := f.db.User("sam@example.com")
	token, err := IssueToken(testSecret, other.ID, time.Hour, f.now)
	require.NoError(t, err)
	rec = f.doAs(t, token, http.MethodPost, "/api/goals/from-template", map[string]any{"template_id": wedding.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code, "a user's template is private")
}

func TestCategorizeEndpoint(t *testing.T) {
	client := &llm.MockClient{Replies: []string{"Food"}}
	assistant := llm.NewAssistant(client, llm.Config{MaxRetries: 1}, nil)

	db := testutil.SetupTestDB(t)
	now := time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	e := engine.New(db.Storage, engine.WithClock(clock), engine.WithCategorizer(assistant))
	s := New(e, testSecret, WithClock(clock))
	f := &fixture{db: db, engine: e, server: s, now: now, user: db.User("pat@example.com")}
	var err error
	f.token, err = IssueToken(testSecret, f.user.ID, time.Hour, now)
	require.NoError(t, err)

	food := db.Category(f.user.ID, "Food")
	account := db.Account(f.user.ID, model.AccountTypeChecking, "0")
	txn := db.Expense(f.user.ID, account.ID, "", "9", now)

	rec := f.do(t, http.MethodPost, "/api/ai/categorize", map[string]any{"transaction_id": txn.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeAs[categorizeResponse](t, rec)
	assert.True(t, res.Categorized)
	assert.Equal(t, food.ID, res.CategoryID)

	rec = f.do(t, http.MethodPost, "/api/ai/categorize", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	n := &model.Notification{UserID: f.user.ID, Type: model.EventBudgetAlert, EntityID: "b1", Message: "Food is at 85%"}
	require.NoError(t, f.db.Storage.CreateNotification(ctx, n))

	rec := f.do(t, http.MethodGet, "/api/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]model.Notification](t, rec), 1)

	rec = f.do(t, http.MethodPost, "/api/notifications/"+n.ID+"/read", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeAs[[]model.Notification](t, rec))

	rec = f.do(t, http.MethodPost, "/api/notifications/missing/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/accounts", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
