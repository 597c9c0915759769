package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/finsight/internal/cli"
	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show your financial health score",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, out := cmd.Context(), cmd.OutOrStdout()

			var score model.HealthScore
			if snapshot, _ := cmd.Flags().GetBool("snapshot"); snapshot {
				if score, err = s.engine.SnapshotHealthScore(ctx, s.user.ID); err != nil {
					return err
				}
			} else {
				score = s.engine.HealthScore(ctx, s.user.ID)
			}
			fmt.Fprintln(out, cli.RenderHealth(score))

			if withForecast, _ := cmd.Flags().GetBool("forecast"); withForecast {
				fmt.Fprintln(out, cli.RenderHealthForecast(s.engine.ForecastHealth(ctx, s.user.ID)))
			}
			return nil
		},
	}
	addUserFlag(cmd)
	cmd.Flags().Bool("forecast", false, "also show the projected score")
	cmd.Flags().Bool("snapshot", false, "record the score in the history")
	return cmd
}

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast next month's spending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSpending(s.engine.ForecastSpending(cmd.Context(), s.user.ID)))
			return nil
		},
	}
	addUserFlag(cmd)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize health, budgets, goals and spending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			report, err := s.engine.Report(cmd.Context(), s.user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderReport(report))
			return nil
		},
	}
	addUserFlag(cmd)
	return cmd
}

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage budgets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show spending against each active budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			statuses, err := s.engine.BudgetStatuses(cmd.Context(), s.user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBudgets(statuses))
			return nil
		},
	}
	addUserFlag(list)

	add := &cobra.Command{
		Use:   "add <name> <amount>",
		Short: "Create a budget",
		Long: `Create a budget that caps spending over a period.

Without --category the budget covers all expenses. The end date follows
from the period unless --end is given.`,
		Args: cobra.ExactArgs(2),
		RunE: runBudgetAdd,
	}
	addUserFlag(add)
	add.Flags().String("category", "", "expense category name or id")
	add.Flags().String("period", string(model.BudgetPeriodMonthly), "weekly, monthly, quarterly or yearly")
	add.Flags().String("start", "", "start date YYYY-MM-DD (default: today)")
	add.Flags().String("end", "", "end date YYYY-MM-DD")
	add.Flags().Int("alert", 80, "alert when this percentage is spent")

	cmd.AddCommand(list, add)
	return cmd
}

func runBudgetAdd(cmd *cobra.Command, args []string) error {
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return common.NewValidationError("amount", "must be a number")
	}
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	period, _ := cmd.Flags().GetString("period")
	alert, _ := cmd.Flags().GetInt("alert")
	b := &model.Budget{
		UserID:         s.user.ID,
		Name:           args[0],
		Period:         model.BudgetPeriod(period),
		TotalAmount:    amount,
		AlertThreshold: alert,
		AlertEnabled:   alert > 0,
	}
	if ref, _ := cmd.Flags().GetString("category"); ref != "" {
		category, err := findCategory(ctx, s.store, s.user.ID, ref)
		if err != nil {
			return err
		}
		b.CategoryID = category.ID
	}
	if start, _ := cmd.Flags().GetString("start"); start != "" {
		if b.StartDate, err = parseDate("start", start); err != nil {
			return err
		}
	}
	if end, _ := cmd.Flags().GetString("end"); end != "" {
		if b.EndDate, err = parseDate("end", end); err != nil {
			return err
		}
	}

	if err := s.engine.CreateBudget(ctx, b); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created budget %s (%s to %s)",
		b.Name, b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"))))
	return nil
}

// findCategory matches a category by id or, case-insensitively, by name.
func findCategory(ctx context.Context, store service.CategoryStore, userID, ref string) (*model.Category, error) {
	categories, err := store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		c := &categories[i]
		if c.ID == ref || strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return nil, common.NotFoundError("category", ref)
}

func goalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage savings goals",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show progress on every goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			goals, err := s.engine.Goals(cmd.Context(), s.user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderGoals(goals))
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <name> <target>",
		Short: "Create a savings goal",
		Args:  cobra.ExactArgs(2),
		RunE:  runGoalAdd,
	}
	add.Flags().String("by", "", "target date YYYY-MM-DD")
	_ = add.MarkFlagRequired("by")
	add.Flags().String("type", "savings", "goal type")
	add.Flags().String("auto", "", "automatic contribution amount")
	add.Flags().String("every", string(model.FrequencyMonthly), "weekly, biweekly, monthly or quarterly")
	add.Flags().StringSlice("milestone", nil, "milestone percentages, e.g. 25,50,75")

	show := &cobra.Command{
		Use:   "show <goal-id>",
		Short: "Show a goal with its milestones and contributions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			detail, err := s.engine.Goal(cmd.Context(), s.user.ID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderGoalDetail(detail))
			return nil
		},
	}

	contribute := &cobra.Command{
		Use:   "contribute <goal-id> <amount>",
		Short: "Add money to a goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return common.NewValidationError("amount", "must be a number")
			}
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			note, _ := cmd.Flags().GetString("note")
			out, err := s.engine.Contribute(cmd.Context(), s.user.ID, args[0], amount, note)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("%s is at %s of %s",
				out.Goal.Name, out.Goal.CurrentAmount.StringFixed(2), out.Goal.TargetAmount.StringFixed(2))))
			for _, m := range out.NewlyAchieved {
				fmt.Fprintln(w, cli.FormatInfo("Milestone reached: "+m.Name))
			}
			if out.Completed {
				fmt.Fprintln(w, cli.FormatSuccess("Goal completed!"))
			}
			return nil
		},
	}
	contribute.Flags().String("note", "", "description for the contribution")

	status := &cobra.Command{
		Use:   "status <goal-id> <active|paused|completed|cancelled>",
		Short: "Change a goal's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			out, err := s.engine.SetGoalStatus(cmd.Context(), s.user.ID, args[0], model.GoalStatus(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s is now %s", out.Goal.Name, out.Goal.Status)))
			return nil
		},
	}

	for _, c := range []*cobra.Command{list, add, show, contribute, status} {
		addUserFlag(c)
		cmd.AddCommand(c)
	}
	return cmd
}

func runGoalAdd(cmd *cobra.Command, args []string) error {
	target, err := decimal.NewFromString(args[1])
	if err != nil {
		return common.NewValidationError("target", "must be a number")
	}
	goalType, _ := cmd.Flags().GetString("type")
	g := &model.Goal{Name: args[0], TargetAmount: target, GoalType: goalType}

	by, _ := cmd.Flags().GetString("by")
	if g.TargetDate, err = parseDate("by", by); err != nil {
		return err
	}
	if auto, _ := cmd.Flags().GetString("auto"); auto != "" {
		if g.ContributionAmount, err = decimal.NewFromString(auto); err != nil {
			return common.NewValidationError("auto", "must be a number")
		}
		every, _ := cmd.Flags().GetString("every")
		g.AutoContribute = true
		g.ContributionFrequency = model.ContributionFrequency(every)
	}
	percents, _ := cmd.Flags().GetStringSlice("milestone")
	milestones := make([]*model.GoalMilestone, 0, len(percents))
	for _, p := range percents {
		pct, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(p), "%"))
		if err != nil {
			return common.NewValidationError("milestone", "must be a percentage")
		}
		milestones = append(milestones, &model.GoalMilestone{Name: pct.String() + "%", TargetPercentage: pct})
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	g.UserID = s.user.ID
	if err := s.engine.CreateGoal(ctx, g); err != nil {
		return err
	}
	for _, m := range milestones {
		m.GoalID = g.ID
		if err := s.engine.AddMilestone(ctx, s.user.ID, m); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created goal %s (%s)", g.Name, g.ID)))
	return nil
}

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Show courses, your streak and achievements",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			summary, err := s.engine.Learning(cmd.Context(), s.user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderLearning(summary))
			return nil
		},
	}

	complete := &cobra.Command{
		Use:   "complete <lesson-id>",
		Short: "Mark a lesson as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			result, err := s.engine.CompleteLesson(cmd.Context(), s.user.ID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderLessonResult(result))
			return nil
		},
	}

	addUserFlag(cmd)
	addUserFlag(complete)
	cmd.AddCommand(complete)
	return cmd
}
