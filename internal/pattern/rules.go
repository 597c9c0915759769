// Package pattern categorizes transactions with user-defined description
// rules before falling back to another categorizer.
package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/engine"
)

// Rule maps descriptions to a category. Pattern is a case-insensitive
// substring unless Regex is set.
type Rule struct {
	Name     string `mapstructure:"name"`
	Pattern  string `mapstructure:"pattern"`
	Category string `mapstructure:"category"`
	Priority int    `mapstructure:"priority"`
	Regex    bool   `mapstructure:"regex"`
}

type compiledRule struct {
	re *regexp.Regexp
	Rule
}

func (r compiledRule) matches(description string) bool {
	if r.re != nil {
		return r.re.MatchString(description)
	}
	return strings.Contains(strings.ToLower(description), strings.ToLower(r.Pattern))
}

// Categorizer applies rules in priority order. Rules with equal priority
// keep their configured order.
type Categorizer struct {
	fallback engine.Categorizer
	logger   *slog.Logger
	rules    []compiledRule
}

// New validates and compiles rules. fallback may be nil, in which case
// descriptions no rule matches stay uncategorized.
func New(rules []Rule, fallback engine.Categorizer, logger *slog.Logger) (*Categorizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		field := fmt.Sprintf("rules[%d]", i)
		if r.Name != "" {
			field = fmt.Sprintf("rules[%s]", r.Name)
		}
		switch {
		case strings.TrimSpace(r.Pattern) == "":
			return nil, common.NewValidationError(field, "pattern is required")
		case strings.TrimSpace(r.Category) == "":
			return nil, common.NewValidationError(field, "category is required")
		}
		c := compiledRule{Rule: r}
		if r.Regex {
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				return nil, common.NewValidationError(field, "invalid regex: "+err.Error())
			}
			c.re = re
		}
		compiled = append(compiled, c)
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})

	return &Categorizer{
		rules:    compiled,
		fallback: fallback,
		logger:   logger.With("component", "pattern"),
	}, nil
}

// Categorize returns the category of the first matching rule whose category
// is one of labels, or asks the fallback.
func (c *Categorizer) Categorize(ctx context.Context, description string, labels []string) string {
	known := make(map[string]bool, len(labels))
	for _, l := range labels {
		known[strings.ToLower(strings.TrimSpace(l))] = true
	}

	for _, r := range c.rules {
		if !r.matches(description) {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(r.Category))
		if known[label] {
			return label
		}
		c.logger.Debug("rule matched an unknown category", "rule", r.Name, "category", r.Category)
	}

	if c.fallback == nil {
		return ""
	}
	return c.fallback.Categorize(ctx, description, labels)
}

// Len reports how many rules are loaded.
func (c *Categorizer) Len() int {
	return len(c.rules)
}
