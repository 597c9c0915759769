// Package service defines the interfaces shared between the engine, the
// persistence layer and the outer adapters.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// DateRange is a half-open interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return DateRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	AccountID  string
	CategoryID string
	Type       model.TransactionType
	Limit      int
	Offset     int
}

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, userID, id string) (*model.Account, error)
	GetAccountByExternalID(ctx context.Context, userID, externalID string) (*model.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]model.Account, error)
	UpdateAccount(ctx context.Context, account *model.Account) error
}

// TransactionStore persists transactions and answers aggregate queries.
type TransactionStore interface {
	// SaveTransaction inserts txn and adjusts account balances. It reports
	// false without error when a transaction with the same hash exists.
	SaveTransaction(ctx context.Context, txn *model.Transaction) (bool, error)
	GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, userID, id, categoryID string) error
	CountTransactions(ctx context.Context, userID string) (int, error)
	// SumTransactions totals transactions of one type inside r.
	SumTransactions(ctx context.Context, userID string, typ model.TransactionType, r DateRange) (decimal.Decimal, error)
	// SumExpenses totals expenses inside r, limited to categoryID unless it
	// is empty.
	SumExpenses(ctx context.Context, userID, categoryID string, r DateRange) (decimal.Decimal, error)
	// CategoryPatterns summarizes expenses per category inside r.
	CategoryPatterns(ctx context.Context, userID string, r DateRange) ([]model.CategoryPattern, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, userID, id string) (*model.Category, error)
	ListCategories(ctx context.Context, userID string) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, userID, id string) error
}

// BudgetStore persists budgets and their allocations.
type BudgetStore interface {
	CreateBudget(ctx context.Context, budget *model.Budget) error
	GetBudget(ctx context.Context, userID, id string) (*model.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]model.Budget, error)
	UpdateBudget(ctx context.Context, budget *model.Budget) error
	SetBudgetAlertSent(ctx context.Context, id string, sent bool) error
	CreateAllocation(ctx context.Context, allocation *model.BudgetAllocation) error
	ListAllocations(ctx context.Context, budgetID string) ([]model.BudgetAllocation, error)
}

// GoalStore persists goals, contributions and milestones.
type GoalStore interface {
	CreateGoal(ctx context.Context, goal *model.Goal) error
	GetGoal(ctx context.Context, userID, id string) (*model.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]model.Goal, error)
	// ListAutoContributeGoals returns active goals of every user that have
	// automatic contributions enabled.
	ListAutoContributeGoals(ctx context.Context) ([]model.Goal, error)
	UpdateGoal(ctx context.Context, goal *model.Goal) error
	AddContribution(ctx context.Context, contribution *model.GoalContribution) error
	ListContributions(ctx context.Context, goalID string) ([]model.GoalContribution, error)
	CreateMilestone(ctx context.Context, milestone *model.GoalMilestone) error
	ListMilestones(ctx context.Context, goalID string) ([]model.GoalMilestone, error)
	UpdateMilestone(ctx context.Context, milestone *model.GoalMilestone) error

	CreateGoalTemplate(ctx context.Context, template *model.GoalTemplate) error
	// GetGoalTemplate returns a system template or one owned by userID.
	GetGoalTemplate(ctx context.Context, userID, id string) (*model.GoalTemplate, error)
	ListGoalTemplates(ctx context.Context, userID string) ([]model.GoalTemplate, error)
	IncrementTemplateUsage(ctx context.Context, id string) error
}

// HealthStore persists health score snapshots. Snapshots are insert-only.
type HealthStore interface {
	SaveHealthScore(ctx context.Context, score *model.HealthScore) error
	ListHealthScores(ctx context.Context, userID string, limit int) ([]model.HealthScore, error)
}

// LearningStore persists courses, progress, streaks and achievements.
type LearningStore interface {
	CreateCourse(ctx context.Context, course *model.Course) error
	GetCourse(ctx context.Context, id string) (*model.Course, error)
	ListCourses(ctx context.Context) ([]model.Course, error)
	CreateLesson(ctx context.Context, lesson *model.Lesson) error
	GetLesson(ctx context.Context, id string) (*model.Lesson, error)

	GetCourseProgress(ctx context.Context, userID, courseID string) (*model.CourseProgress, error)
	SaveCourseProgress(ctx context.Context, progress *model.CourseProgress) error
	ListCourseProgress(ctx context.Context, userID string) ([]model.CourseProgress, error)

	// RecordLessonCompletion reports false when the lesson was already
	// completed by the user.
	RecordLessonCompletion(ctx context.Context, completion *model.LessonCompletion) (bool, error)
	CountCompletedLessons(ctx context.Context, userID, courseID string) (int, error)
	CountAllCompletedLessons(ctx context.Context, userID string) (int, error)

	GetOrCreateStreak(ctx context.Context, userID string) (*model.LearningStreak, error)
	SaveStreak(ctx context.Context, streak *model.LearningStreak) error

	GetAchievementByCode(ctx context.Context, code string) (*model.Achievement, error)
	ListAchievements(ctx context.Context) ([]model.Achievement, error)
	// AwardAchievement reports false when the user already holds it; the
	// existing award is returned unchanged.
	AwardAchievement(ctx context.Context, userID string, achievement *model.Achievement, at time.Time) (*model.UserAchievement, bool, error)
	ListUserAchievements(ctx context.Context, userID string) ([]model.UserAchievement, error)
}

// NotificationStore persists notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification *model.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
}

// ConversationStore persists assistant conversations.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conversation *model.Conversation) error
	GetConversation(ctx context.Context, userID, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error)
	UpdateConversation(ctx context.Context, conversation *model.Conversation) error
	AddChatMessage(ctx context.Context, message *model.ChatMessage) error
	// ListChatMessages returns the newest limit messages, oldest first.
	ListChatMessages(ctx context.Context, conversationID string, limit int) ([]model.ChatMessage, error)
}

// Stores groups every store. Both Storage and Transaction provide it.
type Stores interface {
	UserStore
	AccountStore
	TransactionStore
	CategoryStore
	BudgetStore
	GoalStore
	HealthStore
	LearningStore
	NotificationStore
	ConversationStore
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	Stores

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Stores
	Commit() error
	Rollback() error
}

// Notifier receives domain events emitted by the engine.
type Notifier interface {
	Notify(ctx context.Context, event model.Event) error
}
