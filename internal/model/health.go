package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HealthInputs are the aggregated facts a health score is computed from.
// Income and expense figures are monthly.
type HealthInputs struct {
	WindowStart        time.Time       `json:"window_start"`
	WindowEnd          time.Time       `json:"window_end"`
	MonthlyIncome      decimal.Decimal `json:"monthly_income"`
	MonthlyExpenses    decimal.Decimal `json:"monthly_expenses"`
	LiquidBalance      decimal.Decimal `json:"liquid_balance"`
	LiabilityBalance   decimal.Decimal `json:"liability_balance"`
	CreditBalance      decimal.Decimal `json:"credit_balance"`
	CreditLimit        decimal.Decimal `json:"credit_limit"`
	BudgetAllocated    decimal.Decimal `json:"budget_allocated"`
	BudgetSpent        decimal.Decimal `json:"budget_spent"`
	ActiveAccountCount int             `json:"active_account_count"`
	ActiveBudgetCount  int             `json:"active_budget_count"`
	ActiveGoalCount    int             `json:"active_goal_count"`
	AccountTypeCount   int             `json:"account_type_count"`
}

// HealthBonuses is the breakdown of points added to the base score.
type HealthBonuses struct {
	Savings  int `json:"savings"`
	Accounts int `json:"accounts"`
	Budgets  int `json:"budgets"`
	Goals    int `json:"goals"`
}

// HealthComponents are the 0-100 sub-scores.
type HealthComponents struct {
	SavingsRate         int `json:"savings_rate_score"`
	DebtToIncome        int `json:"debt_to_income_score"`
	BudgetAdherence     int `json:"budget_adherence_score"`
	CreditUtilization   int `json:"credit_utilization_score"`
	EmergencyFund       int `json:"emergency_fund_score"`
	InvestmentDiversity int `json:"investment_diversity_score"`
}

// HealthRatios are the raw ratios behind the sub-scores. Percentages are
// 0-100 scale; EmergencyFundMonths is months of expenses covered.
type HealthRatios struct {
	SavingsRate         float64 `json:"savings_rate"`
	DebtToIncome        float64 `json:"debt_to_income_ratio"`
	BudgetVariance      float64 `json:"budget_variance"`
	CreditUtilization   float64 `json:"credit_utilization"`
	EmergencyFundMonths float64 `json:"emergency_fund_months"`
}

// HealthCalculationData records what a score was computed from.
type HealthCalculationData struct {
	Inputs  HealthInputs  `json:"inputs"`
	Bonuses HealthBonuses `json:"bonuses"`
}

// HealthScore is a computed financial health score. Persisted copies are
// immutable snapshots.
type HealthScore struct {
	CalculatedAt time.Time             `json:"calculated_at"`
	ID           string                `json:"id,omitempty"`
	UserID       string                `json:"user_id"`
	Grade        string                `json:"grade"`
	Data         HealthCalculationData `json:"calculation_data"`
	Ratios       HealthRatios          `json:"ratios"`
	Components   HealthComponents      `json:"components"`
	Overall      int                   `json:"overall_score"`
	Degraded     bool                  `json:"degraded"`
}

// Trend labels.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// HealthForecastPoint is one projected month.
type HealthForecastPoint struct {
	Label          string `json:"month"`
	Month          int    `json:"month_number"`
	PredictedScore int    `json:"predicted_score"`
	Improvement    int    `json:"improvement"`
}

// ImprovementPrediction compares a metric now and after improvement.
type ImprovementPrediction struct {
	Current   float64 `json:"current"`
	Predicted float64 `json:"predicted"`
}

// ImprovementPredictions are the headline metric projections.
type ImprovementPredictions struct {
	SavingsRate   *ImprovementPrediction `json:"savings_rate,omitempty"`
	DebtToIncome  ImprovementPrediction  `json:"debt_to_income"`
	EmergencyFund ImprovementPrediction  `json:"emergency_fund"`
}

// HealthForecast is the projected health score trajectory.
type HealthForecast struct {
	TrendLabel   string                 `json:"trend"`
	Points       []HealthForecastPoint  `json:"forecast"`
	History      []int                  `json:"history"`
	Predictions  ImprovementPredictions `json:"predictions"`
	Trend        float64                `json:"trend_value"`
	CurrentScore int                    `json:"current_score"`
	Degraded     bool                   `json:"degraded"`
}

// CategoryPattern summarizes expense activity in one category over a window.
type CategoryPattern struct {
	Total    decimal.Decimal `json:"total"`
	Category string          `json:"category"`
	Count    int             `json:"count"`
}

// Confidence levels for spending predictions.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// SpendingPrediction is the projected spend in one category.
type SpendingPrediction struct {
	Amount     decimal.Decimal `json:"predicted_amount"`
	Category   string          `json:"category"`
	Confidence string          `json:"confidence"`
	Kind       string          `json:"kind"`
	Window     string          `json:"timeframe"`
	Frequency  float64         `json:"frequency"`
}

// SpendingForecast is the category spending projection.
type SpendingForecast struct {
	TotalPredicted decimal.Decimal      `json:"total_predicted"`
	Predictions    []SpendingPrediction `json:"predictions"`
	Degraded       bool                 `json:"degraded"`
}
