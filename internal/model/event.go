package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a domain event.
type EventType string

// Event types.
const (
	EventGoalCompleted      EventType = "goal_completed"
	EventMilestoneAchieved  EventType = "milestone_achieved"
	EventBudgetAlert        EventType = "budget_alert"
	EventAchievementAwarded EventType = "achievement_awarded"
)

// Event is emitted by the engine when something noteworthy happens.
type Event struct {
	OccurredAt time.Time `json:"occurred_at"`
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	EntityID   string    `json:"entity_id"`
	Message    string    `json:"message"`
}

// Notification is a persisted event shown to the user.
type Notification struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      EventType `json:"type"`
	EntityID  string    `json:"entity_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
}

// FinancialContext is the summary handed to the AI assistant.
type FinancialContext struct {
	MonthlySpending    decimal.Decimal  `json:"monthly_spending"`
	RecentTransactions []Transaction    `json:"recent_transactions"`
	Budgets            []BudgetProgress `json:"budgets"`
	Goals              []GoalProgress   `json:"goals"`
	AccountCount       int              `json:"account_count"`
	TransactionCount   int              `json:"transaction_count"`
	BudgetCount        int              `json:"budget_count"`
	GoalCount          int              `json:"goal_count"`
}

// FinancialReport bundles everything exported to a spreadsheet.
type FinancialReport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	User        User             `json:"user"`
	Budgets     []BudgetProgress `json:"budgets"`
	Goals       []GoalProgress   `json:"goals"`
	Spending    SpendingForecast `json:"spending"`
	Health      HealthScore      `json:"health"`
}
