package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/google/uuid"
)

const healthColumns = `id, user_id, overall_score, grade,
	savings_rate_score, debt_to_income_score, budget_adherence_score,
	credit_utilization_score, emergency_fund_score, investment_diversity_score,
	savings_rate, debt_to_income_ratio, budget_variance, credit_utilization, emergency_fund_months,
	calculation_data, degraded, calculated_at`

// SaveHealthScore appends a snapshot. Snapshots are never updated.
func (q *queries) SaveHealthScore(ctx context.Context, score *model.HealthScore) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if score == nil {
		return fmt.Errorf("%w: health score", ErrNilParameter)
	}
	if err := validateString(score.UserID, "user_id"); err != nil {
		return err
	}
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.CalculatedAt.IsZero() {
		score.CalculatedAt = nowUTC()
	}

	data, err := json.Marshal(score.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal calculation data: %w", err)
	}

	c, r := score.Components, score.Ratios
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO health_scores (`+healthColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		score.ID, score.UserID, score.Overall, score.Grade,
		c.SavingsRate, c.DebtToIncome, c.BudgetAdherence, c.CreditUtilization, c.EmergencyFund, c.InvestmentDiversity,
		r.SavingsRate, r.DebtToIncome, r.BudgetVariance, r.CreditUtilization, r.EmergencyFundMonths,
		string(data), score.Degraded, score.CalculatedAt.UTC())
	if err != nil {
		return duplicate(err, "health score")
	}
	return nil
}

// ListHealthScores returns the user's snapshots, newest first. A limit of
// zero returns all of them.
func (q *queries) ListHealthScores(ctx context.Context, userID string, limit int) ([]model.HealthScore, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + healthColumns + ` FROM health_scores WHERE user_id = ? ORDER BY calculated_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query health scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scores []model.HealthScore
	for rows.Next() {
		var (
			s    model.HealthScore
			data string
		)
		c, r := &s.Components, &s.Ratios
		if err := rows.Scan(&s.ID, &s.UserID, &s.Overall, &s.Grade,
			&c.SavingsRate, &c.DebtToIncome, &c.BudgetAdherence, &c.CreditUtilization, &c.EmergencyFund, &c.InvestmentDiversity,
			&r.SavingsRate, &r.DebtToIncome, &r.BudgetVariance, &r.CreditUtilization, &r.EmergencyFundMonths,
			&data, &s.Degraded, &s.CalculatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan health score: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &s.Data); err != nil {
			return nil, fmt.Errorf("health score %s has corrupt calculation data: %w", s.ID, err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}
