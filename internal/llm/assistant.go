package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
)

// FallbackCategory is returned whenever categorization cannot produce a
// valid label.
const FallbackCategory = "miscellaneous"

// MaxInsights caps the number of insights returned.
const MaxInsights = 5

// Replies used when the model fails.
const (
	FallbackInsight = "I'm having trouble analyzing your financial data right now. Please try again later."
	FallbackChat    = "I'm having trouble analyzing your financial data right now. Please try asking your question again."
)

// DefaultLabels are offered when the caller has no categories of its own.
var DefaultLabels = []string{
	"food_dining", "groceries", "transportation", "fuel", "entertainment",
	"shopping", "utilities", "healthcare", "education", "travel",
	"fitness", "subscriptions", "insurance", "banking", "investment",
	FallbackCategory,
}

// Assistant answers finance questions through a language model. Every
// public method degrades to a fixed reply instead of returning an error.
type Assistant struct {
	client    Client
	cache     *replyCache
	limiter   *rateLimiter
	logger    *slog.Logger
	retryOpts common.RetryOptions
}

// New creates an assistant for the configured provider.
func New(cfg Config, logger *slog.Logger) (*Assistant, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewAssistant(client, cfg, logger), nil
}

// NewAssistant wraps an existing client.
func NewAssistant(client Client, cfg Config, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Assistant{
		client:    client,
		cache:     newReplyCache(cfg.CacheTTL),
		limiter:   newRateLimiter(cfg.RateLimit),
		logger:    logger.With("component", "llm"),
		retryOpts: retryOpts,
	}
}

func (a *Assistant) complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	var reply string
	err := common.WithRetry(ctx, func() error {
		if err := a.limiter.wait(ctx); err != nil {
			return &common.RetryableError{Err: err}
		}
		var err error
		reply, err = a.client.Complete(ctx, prompt, opts)
		return err
	}, a.retryOpts)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrLLMUnavailable, err)
	}
	return reply, nil
}

// Categorize picks one of labels for a transaction description. Labels are
// compared lower-cased; any other reply, or a failure, yields
// FallbackCategory.
func (a *Assistant) Categorize(ctx context.Context, description string, labels []string) string {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	valid := make([]string, 0, len(labels))
	for _, l := range labels {
		valid = append(valid, strings.ToLower(strings.TrimSpace(l)))
	}

	key := cacheKey(description, strings.Join(valid, ","))
	if label, ok := a.cache.get(key); ok {
		a.logger.Debug("categorization cache hit", "description", description)
		return label
	}

	prompt := fmt.Sprintf(`Categorize this expense description into one of these categories:

Categories: %s

Expense description: %q

Return only the category name, nothing else.`, strings.Join(valid, ", "), description)

	reply, err := a.complete(ctx, prompt, CompletionOptions{Temperature: 0.3, MaxTokens: 50})
	if err != nil {
		a.logger.Error("categorization failed", "error", err)
		return FallbackCategory
	}

	label := normalizeLabel(reply)
	if !slices.Contains(valid, label) {
		a.logger.Warn("model returned unknown category", "reply", reply)
		return FallbackCategory
	}
	a.cache.set(key, label)
	return label
}

func normalizeLabel(reply string) string {
	label := strings.ToLower(strings.TrimSpace(reply))
	return strings.Trim(label, "\"'`.")
}

// Insights asks for up to MaxInsights observations about data, which is
// rendered as JSON in the prompt.
func (a *Assistant) Insights(ctx context.Context, data any) []string {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		a.logger.Error("failed to encode insight data", "error", err)
		return []string{FallbackInsight}
	}

	prompt := fmt.Sprintf(`Analyze this financial data and provide 3-5 key insights and recommendations:

Financial Data:
%s

Provide insights about:
1. Spending patterns and trends
2. Budget performance
3. Goal progress
4. Areas for improvement
5. Positive financial behaviors to reinforce

Format as a list of actionable insights. Each insight should be 1-2 sentences.`, payload)

	reply, err := a.complete(ctx, prompt, CompletionOptions{})
	if err != nil {
		a.logger.Error("insight generation failed", "error", err)
		return []string{FallbackInsight}
	}

	insights := ParseInsights(reply)
	if len(insights) == 0 {
		return []string{FallbackInsight}
	}
	return insights
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// ParseInsights splits a reply into at most MaxInsights non-empty lines
// with list markers removed.
func ParseInsights(reply string) []string {
	var insights []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		insights = append(insights, line)
		if len(insights) == MaxInsights {
			break
		}
	}
	return insights
}

// Chat answers a user's question using their financial context and the
// earlier turns of the conversation, oldest first.
func (a *Assistant) Chat(ctx context.Context, message string, history []model.ChatMessage, fc *model.FinancialContext) string {
	prompt := fmt.Sprintf(`User's Financial Context:
%s
%s
User's Question: %s

Provide a helpful response:`, BuildFinancialContext(fc), buildHistory(history), message)

	reply, err := a.complete(ctx, prompt, CompletionOptions{System: chatSystemPrompt})
	if err != nil || strings.TrimSpace(reply) == "" {
		a.logger.Error("chat failed", "error", err)
		return FallbackChat
	}
	return reply
}

// buildHistory renders earlier turns as prompt text.
func buildHistory(history []model.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nConversation so far:\n")
	for _, m := range history {
		speaker := "User"
		if m.Role == model.ChatRoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, strings.TrimSpace(m.Content))
	}
	return b.String()
}

const chatSystemPrompt = `You are an expert financial advisor assistant for FinSight, a personal finance app.
Analyze the user's financial context and give specific, actionable advice based on their actual data.
Be encouraging but realistic, suggest concrete next steps and use actual numbers from the context.
Keep responses conversational and concise.`

// BuildFinancialContext renders the context as prompt text.
func BuildFinancialContext(fc *model.FinancialContext) string {
	if fc == nil {
		return "Financial data is currently unavailable."
	}

	var b strings.Builder
	b.WriteString("User Financial Overview:\n")
	fmt.Fprintf(&b, "- Monthly spending so far: $%s\n", fc.MonthlySpending.StringFixed(2))
	fmt.Fprintf(&b, "- Accounts: %d\n", fc.AccountCount)
	fmt.Fprintf(&b, "- Transactions: %d\n", fc.TransactionCount)
	fmt.Fprintf(&b, "- Budgets: %d\n", fc.BudgetCount)
	fmt.Fprintf(&b, "- Goals: %d\n", fc.GoalCount)

	if len(fc.RecentTransactions) > 0 {
		b.WriteString("\nRecent Transactions:\n")
		for _, t := range fc.RecentTransactions {
			fmt.Fprintf(&b, "- %s %s: $%s (%s)\n", t.Date.Format("2006-01-02"), t.Description, t.Amount.StringFixed(2), t.Type)
		}
	}

	if len(fc.Budgets) > 0 {
		b.WriteString("\nBudgets:\n")
		for _, p := range fc.Budgets {
			fmt.Fprintf(&b, "- %s: $%s spent / $%s budget ($%s remaining)\n",
				p.Budget.Name, p.Spent.StringFixed(2), p.Budget.TotalAmount.StringFixed(2), p.Remaining.StringFixed(2))
		}
	}

	if len(fc.Goals) > 0 {
		b.WriteString("\nGoals:\n")
		for _, g := range fc.Goals {
			fmt.Fprintf(&b, "- %s: $%s / $%s (%.1f%% complete)\n",
				g.Goal.Name, g.Goal.CurrentAmount.StringFixed(2), g.Goal.TargetAmount.StringFixed(2), g.ProgressPercentage)
		}
	}

	return b.String()
}
