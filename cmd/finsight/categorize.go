package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/finsight/internal/cli"
	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize uncategorized expenses with rules and the AI assistant",
		Long: `Pick one of your expense categories for every expense that has none.
Rules in categorize.rules are tried first, highest priority first:

  categorize:
    rules:
      - name: coffee
        pattern: starbucks
        category: Dining
      - name: rideshare
        pattern: "^(uber|lyft)"
        regex: true
        category: Transport
        priority: 10

Descriptions no rule matches go to the configured language model. Anything
left over stays uncategorized.`,
		RunE: runCategorize,
	}
	addUserFlag(cmd)
	cmd.Flags().Int("limit", 500, "most recent expenses to consider")
	return cmd
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), "Categorization", "finsight categorize")

	txns, err := s.engine.Transactions(ctx, s.user.ID, service.TransactionFilter{
		Type:  model.TransactionTypeExpense,
		Limit: limit,
	})
	if err != nil {
		return err
	}
	var pending []model.Transaction
	for _, t := range txns {
		if t.CategoryID == "" {
			pending = append(pending, t)
		}
	}
	out := cmd.OutOrStdout()
	if len(pending) == 0 {
		fmt.Fprintln(out, cli.FormatSuccess("Every expense already has a category"))
		return nil
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Categorizing expenses...[reset]"),
	)

	var categorized, skipped int
	for _, t := range pending {
		if ctx.Err() != nil {
			break
		}
		categoryID, err := s.engine.Categorize(ctx, s.user.ID, t.ID)
		switch {
		case err != nil && common.IsRetryable(err):
			slog.Warn("Categorization failed", "transaction", t.ID, "error", err)
			skipped++
		case err != nil:
			_ = bar.Finish()
			return err
		case categoryID == "":
			skipped++
		default:
			categorized++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if handler.WasInterrupted() {
		return ctx.Err()
	}
	summary := fmt.Sprintf("Categorized: %d\nLeft uncategorized: %d", categorized, skipped)
	fmt.Fprintln(out, cli.RenderBox("Categorization Complete", summary))
	return nil
}
