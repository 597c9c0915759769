package sheets

import (
	"fmt"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// Layout is a report rendered as sheet rows. SectionRows and HeaderRows
// hold zero-based row indexes for formatting.
type Layout struct {
	Rows        [][]any
	SectionRows []int
	HeaderRows  []int
}

func (l *Layout) blank() {
	l.Rows = append(l.Rows, []any{})
}

func (l *Layout) section(title ...any) {
	l.SectionRows = append(l.SectionRows, len(l.Rows))
	l.Rows = append(l.Rows, title)
}

func (l *Layout) header(cols ...any) {
	l.HeaderRows = append(l.HeaderRows, len(l.Rows))
	l.Rows = append(l.Rows, cols)
}

func (l *Layout) row(cols ...any) {
	l.Rows = append(l.Rows, cols)
}

// money renders amounts as numbers so the sheet can format and sum them.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func percent(p float64) float64 {
	return decimal.NewFromFloat(p).Round(1).InexactFloat64()
}

// BuildLayout renders a report: health, budgets, goals and the spending
// forecast, top to bottom in one sheet.
func BuildLayout(report *model.FinancialReport) Layout {
	var l Layout

	l.row("FinSight Financial Report", report.User.Name, report.GeneratedAt.Format("Jan 2, 2006"))
	l.blank()

	h := report.Health
	l.section("Financial Health")
	l.row("Overall Score", h.Overall, h.Grade)
	if h.Degraded {
		l.row("Note", "Score could not be computed; a neutral default is shown")
	}
	l.header("Component", "Score")
	l.row("Savings Rate", h.Components.SavingsRate)
	l.row("Debt to Income", h.Components.DebtToIncome)
	l.row("Budget Adherence", h.Components.BudgetAdherence)
	l.row("Credit Utilization", h.Components.CreditUtilization)
	l.row("Emergency Fund", h.Components.EmergencyFund)
	l.row("Investment Diversity", h.Components.InvestmentDiversity)
	l.blank()

	l.section("Budgets")
	l.header("Budget", "Period", "Total", "Spent", "Remaining", "Used %", "Status")
	for _, b := range report.Budgets {
		status := "On track"
		switch {
		case b.OverBudget:
			status = "Over budget"
		case b.ShouldAlert:
			status = fmt.Sprintf("Past %d%% alert", b.Budget.AlertThreshold)
		}
		l.row(b.Budget.Name, string(b.Budget.Period), money(b.Budget.TotalAmount), money(b.Spent),
			money(b.Remaining), percent(b.SpentPercentage), status)
	}
	if len(report.Budgets) == 0 {
		l.row("No active budgets")
	}
	l.blank()

	l.section("Goals")
	l.header("Goal", "Target", "Current", "Remaining", "Progress %", "Status", "Target Date")
	for _, g := range report.Goals {
		l.row(g.Goal.Name, money(g.Goal.TargetAmount), money(g.Goal.CurrentAmount), money(g.Remaining),
			percent(g.ProgressPercentage), string(g.Goal.Status), g.Goal.TargetDate.Format("2006-01-02"))
	}
	if len(report.Goals) == 0 {
		l.row("No goals")
	}
	l.blank()

	s := report.Spending
	l.section("Spending Forecast", "Total", money(s.TotalPredicted))
	l.header("Category", "Predicted", "Per Month", "Confidence", "Kind")
	for _, p := range s.Predictions {
		l.row(p.Category, money(p.Amount), percent(p.Frequency), p.Confidence, p.Kind)
	}
	if len(s.Predictions) == 0 {
		l.row("Not enough spending history")
	}

	return l
}
