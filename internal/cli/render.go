package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func pct(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64) + "%"
}

// RenderHealth renders a health score with its component breakdown.
func RenderHealth(h model.HealthScore) string {
	var b strings.Builder
	b.WriteString(FormatTitle(ChartIcon, "Financial Health"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s\n", BoldStyle.Render(fmt.Sprintf("%d/100", h.Overall)), gradeStyle(h.Grade).Render(h.Grade))
	if h.Degraded {
		b.WriteString(FormatWarning("Some inputs were unavailable; the score is partial.") + "\n")
	}
	b.WriteString("\n")

	t := newTable("Component", "Score", "Ratio")
	t.Row("Savings rate", strconv.Itoa(h.Components.SavingsRate), pct(h.Ratios.SavingsRate))
	t.Row("Debt to income", strconv.Itoa(h.Components.DebtToIncome), pct(h.Ratios.DebtToIncome))
	t.Row("Budget adherence", strconv.Itoa(h.Components.BudgetAdherence), pct(h.Ratios.BudgetVariance))
	t.Row("Credit utilization", strconv.Itoa(h.Components.CreditUtilization), pct(h.Ratios.CreditUtilization))
	t.Row("Emergency fund", strconv.Itoa(h.Components.EmergencyFund), strconv.FormatFloat(h.Ratios.EmergencyFundMonths, 'f', 1, 64)+" mo")
	t.Row("Investment diversity", strconv.Itoa(h.Components.InvestmentDiversity), "")
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderHealthForecast renders the projected health trajectory.
func RenderHealthForecast(f model.HealthForecast) string {
	var b strings.Builder
	b.WriteString(FormatTitle(ChartIcon, "Health Forecast"))
	b.WriteString("\n")

	trend := InfoStyle
	switch f.TrendLabel {
	case model.TrendImproving:
		trend = SuccessStyle
	case model.TrendDeclining:
		trend = ErrorStyle
	}
	fmt.Fprintf(&b, "Current score %s, trend %s\n\n", BoldStyle.Render(strconv.Itoa(f.CurrentScore)), trend.Render(f.TrendLabel))

	t := newTable("Month", "Predicted", "Change")
	for _, p := range f.Points {
		t.Row(p.Label, strconv.Itoa(p.PredictedScore), fmt.Sprintf("%+d", p.Improvement))
	}
	b.WriteString(t.Render())
	b.WriteString("\n")

	pred := f.Predictions
	if pred.SavingsRate != nil {
		fmt.Fprintf(&b, "Savings rate       %s → %s\n", pct(pred.SavingsRate.Current), pct(pred.SavingsRate.Predicted))
	}
	fmt.Fprintf(&b, "Debt to income     %s → %s\n", pct(pred.DebtToIncome.Current), pct(pred.DebtToIncome.Predicted))
	fmt.Fprintf(&b, "Emergency fund     %.1f → %.1f months\n", pred.EmergencyFund.Current, pred.EmergencyFund.Predicted)
	return b.String()
}

// RenderBudgets renders budget progress, one row per budget.
func RenderBudgets(budgets []model.BudgetProgress) string {
	var b strings.Builder
	b.WriteString(FormatTitle(ChartIcon, "Budgets"))
	b.WriteString("\n")
	if len(budgets) == 0 {
		b.WriteString(SubtleStyle.Render("No active budgets") + "\n")
		return b.String()
	}

	t := newTable("Budget", "Period", "Limit", "Spent", "Remaining", "Used")
	for _, p := range budgets {
		used := pct(p.SpentPercentage)
		switch {
		case p.OverBudget:
			used = ErrorStyle.Render(used)
		case p.ShouldAlert:
			used = WarningStyle.Render(used)
		}
		t.Row(p.Budget.Name, string(p.Budget.Period), money(p.Budget.TotalAmount), money(p.Spent), money(p.Remaining), used)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderGoals renders goal progress.
func RenderGoals(goals []model.GoalProgress) string {
	var b strings.Builder
	b.WriteString(FormatTitle(GoalIcon, "Goals"))
	b.WriteString("\n")
	if len(goals) == 0 {
		b.WriteString(SubtleStyle.Render("No goals") + "\n")
		return b.String()
	}

	t := newTable("Goal", "Status", "Saved", "Target", "Progress", "Due")
	for _, p := range goals {
		g := p.Goal
		t.Row(g.Name, string(g.Status), money(g.CurrentAmount), money(g.TargetAmount), progressBar(p.ProgressPercentage, 10)+" "+pct(p.ProgressPercentage), g.TargetDate.Format("2006-01-02"))
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderGoalDetail renders one goal with its milestones and contributions.
func RenderGoalDetail(d *engine.GoalDetail) string {
	var b strings.Builder
	b.WriteString(RenderGoals([]model.GoalProgress{d.Progress}))

	if len(d.Milestones) > 0 {
		b.WriteString("\n")
		t := newTable("Milestone", "At", "Reached")
		for _, m := range d.Milestones {
			reached := SubtleStyle.Render("-")
			if m.IsAchieved && m.AchievedAt != nil {
				reached = SuccessStyle.Render(SuccessIcon + " " + m.AchievedAt.Format("2006-01-02"))
			}
			t.Row(m.Name, m.TargetPercentage.StringFixed(0)+"%", reached)
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	if len(d.Contributions) > 0 {
		b.WriteString("\n")
		t := newTable("Date", "Amount", "Source", "Note")
		for _, c := range d.Contributions {
			t.Row(c.CreatedAt.Format("2006-01-02"), money(c.Amount), string(c.Source), c.Description)
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSpending renders the category spending forecast.
func RenderSpending(f model.SpendingForecast) string {
	var b strings.Builder
	b.WriteString(FormatTitle(ChartIcon, "Spending Forecast"))
	b.WriteString("\n")
	if f.Degraded {
		b.WriteString(FormatWarning("Spending history was unavailable.") + "\n")
	}
	if len(f.Predictions) == 0 {
		b.WriteString(SubtleStyle.Render("Not enough spending history") + "\n")
		return b.String()
	}

	t := newTable("Category", "Predicted", "Confidence", "Kind", "Window")
	for _, p := range f.Predictions {
		conf := p.Confidence
		switch conf {
		case model.ConfidenceHigh:
			conf = SuccessStyle.Render(conf)
		case model.ConfidenceLow:
			conf = SubtleStyle.Render(conf)
		}
		t.Row(p.Category, money(p.Amount), conf, p.Kind, p.Window)
	}
	t.Row(BoldStyle.Render("Total"), BoldStyle.Render(money(f.TotalPredicted)), "", "", "")
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// RenderReport renders every section of a report.
func RenderReport(r *model.FinancialReport) string {
	header := fmt.Sprintf("Report for %s, generated %s", r.User.Email, r.GeneratedAt.Format("2006-01-02 15:04"))
	return strings.Join([]string{
		SubtleStyle.Render(header) + "\n",
		RenderHealth(r.Health),
		RenderBudgets(r.Budgets),
		RenderGoals(r.Goals),
		RenderSpending(r.Spending),
	}, "\n")
}

// RenderLearning renders course progress, the streak and achievements.
func RenderLearning(s *engine.LearningSummary) string {
	var b strings.Builder
	b.WriteString(FormatTitle(BookIcon, "Learning"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d day streak (longest %d), %d points\n\n", FlameIcon, s.Streak.CurrentStreak, s.Streak.LongestStreak, s.Points)

	if len(s.Courses) > 0 {
		t := newTable("Course", "Status", "Lessons", "Complete")
		for _, c := range s.Courses {
			t.Row(c.CourseID, string(c.Status), strconv.Itoa(c.CompletedLessons), progressBar(c.CompletionPercentage, 10)+" "+pct(c.CompletionPercentage))
		}
		b.WriteString(t.Render())
		b.WriteString("\n")
	}
	for _, a := range s.Achievements {
		fmt.Fprintf(&b, "%s %s (+%d)\n", SuccessStyle.Render(SuccessIcon), a.Title, a.PointsEarned)
	}
	return b.String()
}

// RenderImportResult summarizes an import.
func RenderImportResult(source string, r engine.ImportResult) string {
	msg := fmt.Sprintf("Imported %d transactions from %s (%d duplicates skipped; %d accounts created, %d updated)",
		r.Imported, source, r.Duplicates, r.AccountsCreated, r.AccountsUpdated)
	return FormatSuccess(msg)
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(filled, width))
	return SuccessStyle.Render(strings.Repeat("█", filled)) + SubtleStyle.Render(strings.Repeat("░", width-filled))
}

// RenderLessonResult reports a lesson completion.
func RenderLessonResult(r *engine.LessonResult) string {
	if r.Repeat {
		return FormatInfo("Lesson already completed")
	}
	lines := []string{
		FormatSuccess(fmt.Sprintf("Lesson completed, course %s done", pct(r.Progress.CompletionPercentage))),
		fmt.Sprintf("%s %d day streak", FlameIcon, r.Streak.CurrentStreak),
	}
	for _, a := range r.Awarded {
		lines = append(lines, FormatSuccess(fmt.Sprintf("Achievement unlocked: %s (+%d points)", a.Title, a.PointsEarned)))
	}
	return strings.Join(lines, "\n")
}
