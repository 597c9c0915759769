package engine_test

import (
	"context"
	"testing"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoResponder replies with the message it got and keeps what it saw.
type echoResponder struct {
	histories [][]model.ChatMessage
	contexts  []*model.FinancialContext
}

func (r *echoResponder) Chat(_ context.Context, message string, history []model.ChatMessage, fc *model.FinancialContext) string {
	r.histories = append(r.histories, history)
	r.contexts = append(r.contexts, fc)
	return "re: " + message
}

func TestChatKeepsConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.db.User("pat@example.com")
	f.db.Account(u.ID, model.AccountTypeChecking, "250")
	r := &echoResponder{}

	first, err := f.engine.Chat(ctx, u.ID, "", "Can I retire early?", r)
	require.NoError(t, err)
	require.NotEmpty(t, first.ConversationID)
	assert.Equal(t, "re: Can I retire early?", first.Reply.Content)
	assert.Empty(t, r.histories[0])
	require.NotNil(t, r.contexts[0])
	assert.Equal(t, 1, r.contexts[0].AccountCount)

	second, err := f.engine.Chat(ctx, u.ID, first.ConversationID, "What about at 50?", r)
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	require.Len(t, r.histories[1], 2)
	assert.Equal(t, model.ChatRoleUser, r.histories[1][0].Role)
	assert.Equal(t, "Can I retire early?", r.histories[1][0].Content)
	assert.Equal(t, "re: Can I retire early?", r.histories[1][1].Content)

	stale, err := f.engine.Chat(ctx, u.ID, "gone", "Hello again", r)
	require.NoError(t, err)
	assert.NotEqual(t, "gone", stale.ConversationID, "an unknown conversation starts a new one")
	assert.NotEqual(t, first.ConversationID, stale.ConversationID)

	history, err := f.engine.ChatHistory(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	byID := map[string]model.Conversation{}
	for _, c := range history {
		byID[c.ID] = c
	}
	assert.Len(t, byID[first.ConversationID].Messages, 4)
	assert.Len(t, byID[stale.ConversationID].Messages, 2)

	_, err = f.engine.Chat(ctx, u.ID, "", "  ", r)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Len(t, r.histories, 3, "a blank message never reaches the responder")
}

func TestChatHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.db.User("pat@example.com")
	r := &echoResponder{}

	turn, err := f.engine.Chat(ctx, u.ID, "", "0", r)
	require.NoError(t, err)
	for i := 1; i < engine.ChatHistoryTurns; i++ {
		_, err := f.engine.Chat(ctx, u.ID, turn.ConversationID, "more", r)
		require.NoError(t, err)
	}
	last := r.histories[len(r.histories)-1]
	assert.Len(t, last, engine.ChatHistoryTurns)
	assert.Equal(t, model.ChatRoleAssistant, last[len(last)-1].Role)
}

func TestCreateGoalFromTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.db.User("pat@example.com")

	g, err := f.engine.CreateGoalFromTemplate(ctx, u.ID, "tpl-vacation", engine.TemplateOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "Vacation", g.Name)
	assert.Equal(t, model.GoalStatusActive, g.Status)
	assert.True(t, g.TargetDate.Equal(f.now.AddDate(0, 0, 180)))

	custom, err := f.engine.CreateGoalFromTemplate(ctx, u.ID, "tpl-vacation", engine.TemplateOverrides{
		Name: "Japan", TargetAmount: testutil.Money(t, "6000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Japan", custom.Name)
	assert.Equal(t, "6000.00", custom.TargetAmount.StringFixed(2))

	templates, err := f.engine.GoalTemplates(ctx, u.ID)
	require.NoError(t, err)
	for _, tpl := range templates {
		if tpl.ID == "tpl-vacation" {
			assert.Equal(t, 2, tpl.UsageCount)
		}
	}

	_, err = f.engine.CreateGoalFromTemplate(ctx, u.ID, "tpl-vacation", engine.TemplateOverrides{TargetDate: f.now.AddDate(0, 0, -1)})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = f.engine.CreateGoalFromTemplate(ctx, u.ID, "missing", engine.TemplateOverrides{})
	assert.ErrorIs(t, err, common.ErrNotFound)

	goals, err := f.engine.Goals(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, goals, 2, "failed attempts create nothing")

	templates, err = f.engine.GoalTemplates(ctx, u.ID)
	require.NoError(t, err)
	for _, tpl := range templates {
		if tpl.ID == "tpl-vacation" {
			assert.Equal(t, 2, tpl.UsageCount, "a rejected goal does not count")
		}
	}
}
