// Package scoring turns aggregated financial facts into a bounded health score.
package scoring

import (
	"time"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// BaseScore is the starting point of every score and the fallback when
// inputs cannot be read.
const BaseScore = 50

// investmentTypeTarget is the number of distinct account types that earns a
// full diversity sub-score.
const investmentTypeTarget = 5

// Compute scores the given inputs. It never fails.
func Compute(userID string, in model.HealthInputs, now time.Time) model.HealthScore {
	ratios := computeRatios(in)

	bonuses := model.HealthBonuses{
		Accounts: accountBonus(in.ActiveAccountCount),
		Budgets:  budgetBonus(in.ActiveBudgetCount),
		Goals:    goalBonus(in.ActiveGoalCount),
	}
	if in.MonthlyIncome.IsPositive() {
		bonuses.Savings = savingsBonus(ratios.SavingsRate)
	}

	overall := clamp(BaseScore+bonuses.Savings+bonuses.Accounts+bonuses.Budgets+bonuses.Goals, 0, 100)

	return model.HealthScore{
		UserID:       userID,
		Overall:      overall,
		Grade:        Grade(overall),
		Components:   computeComponents(in, ratios),
		Ratios:       ratios,
		Data:         model.HealthCalculationData{Inputs: in, Bonuses: bonuses},
		CalculatedAt: now,
	}
}

// Degraded returns the neutral score used when inputs are unavailable.
func Degraded(userID string, now time.Time) model.HealthScore {
	return model.HealthScore{
		UserID:       userID,
		Overall:      BaseScore,
		Grade:        Grade(BaseScore),
		CalculatedAt: now,
		Degraded:     true,
	}
}

// Grade maps an overall score to a letter grade.
func Grade(score int) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 85:
		return "B+"
	case score >= 80:
		return "B"
	case score >= 75:
		return "C+"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func savingsBonus(rate float64) int {
	switch {
	case rate >= 20:
		return 20
	case rate >= 10:
		return 15
	case rate >= 5:
		return 10
	case rate >= 0:
		return 5
	default:
		return 0
	}
}

func accountBonus(count int) int {
	switch {
	case count >= 3:
		return 15
	case count >= 2:
		return 10
	case count >= 1:
		return 5
	default:
		return 0
	}
}

func budgetBonus(count int) int {
	switch {
	case count >= 3:
		return 15
	case count >= 1:
		return 10
	default:
		return 0
	}
}

func goalBonus(count int) int {
	switch {
	case count >= 2:
		return 10
	case count >= 1:
		return 5
	default:
		return 0
	}
}

func computeRatios(in model.HealthInputs) model.HealthRatios {
	var r model.HealthRatios

	if in.MonthlyIncome.IsPositive() {
		r.SavingsRate = model.Percent(in.MonthlyIncome.Sub(in.MonthlyExpenses), in.MonthlyIncome)
		r.DebtToIncome = model.Percent(in.LiabilityBalance, in.MonthlyIncome.Mul(decimal.NewFromInt(12)))
	} else if in.LiabilityBalance.IsPositive() {
		r.DebtToIncome = 100
	}

	r.CreditUtilization = model.Percent(in.CreditBalance, in.CreditLimit)

	if in.BudgetAllocated.IsPositive() {
		r.BudgetVariance = model.Percent(in.BudgetSpent.Sub(in.BudgetAllocated), in.BudgetAllocated)
	}

	if in.MonthlyExpenses.IsPositive() {
		r.EmergencyFundMonths = in.LiquidBalance.Div(in.MonthlyExpenses).Round(2).InexactFloat64()
	}

	return r
}

func computeComponents(in model.HealthInputs, r model.HealthRatios) model.HealthComponents {
	c := model.HealthComponents{
		DebtToIncome:        debtScore(r.DebtToIncome),
		CreditUtilization:   creditScore(r.CreditUtilization),
		InvestmentDiversity: clamp(in.AccountTypeCount*100/investmentTypeTarget, 0, 100),
		BudgetAdherence:     BaseScore,
		EmergencyFund:       BaseScore,
	}

	if in.MonthlyIncome.IsPositive() {
		c.SavingsRate = savingsScore(r.SavingsRate)
	}
	if in.BudgetAllocated.IsPositive() {
		c.BudgetAdherence = varianceScore(r.BudgetVariance)
	}
	if in.MonthlyExpenses.IsPositive() {
		c.EmergencyFund = emergencyScore(r.EmergencyFundMonths)
	}

	return c
}

func savingsScore(rate float64) int {
	switch {
	case rate >= 20:
		return 100
	case rate >= 10:
		return 75
	case rate >= 5:
		return 50
	case rate >= 0:
		return 25
	default:
		return 0
	}
}

func debtScore(ratio float64) int {
	switch {
	case ratio <= 20:
		return 100
	case ratio <= 36:
		return 75
	case ratio <= 50:
		return 50
	default:
		return 25
	}
}

func creditScore(utilization float64) int {
	switch {
	case utilization <= 10:
		return 100
	case utilization <= 30:
		return 80
	case utilization <= 50:
		return 60
	case utilization <= 75:
		return 40
	default:
		return 20
	}
}

func varianceScore(variance float64) int {
	switch {
	case variance <= 0:
		return 100
	case variance <= 10:
		return 75
	case variance <= 25:
		return 50
	default:
		return 25
	}
}

func emergencyScore(months float64) int {
	switch {
	case months >= 6:
		return 100
	case months >= 3:
		return 75
	case months >= 1:
		return 50
	case months > 0:
		return 25
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
