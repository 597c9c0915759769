package model

import "time"

// Course is a unit of learning content made of lessons.
type Course struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Difficulty   string    `json:"difficulty,omitempty"`
	TotalLessons int       `json:"total_lessons"`
	IsPublished  bool      `json:"is_published"`
}

// Lesson belongs to a course.
type Lesson struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// CourseStatus is a user's state in a course.
type CourseStatus string

// Course statuses.
const (
	CourseNotStarted CourseStatus = "not_started"
	CourseInProgress CourseStatus = "in_progress"
	CourseCompleted  CourseStatus = "completed"
)

// CourseProgress tracks one user's progress through one course.
type CourseProgress struct {
	UpdatedAt            time.Time    `json:"updated_at"`
	StartedAt            *time.Time   `json:"started_at,omitempty"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`
	UserID               string       `json:"user_id"`
	CourseID             string       `json:"course_id"`
	Status               CourseStatus `json:"status"`
	CompletionPercentage float64      `json:"completion_percentage"`
	CompletedLessons     int          `json:"completed_lessons"`
}

// LessonCompletion records that a user finished a lesson.
type LessonCompletion struct {
	CompletedAt time.Time `json:"completed_at"`
	UserID      string    `json:"user_id"`
	CourseID    string    `json:"course_id"`
	LessonID    string    `json:"lesson_id"`
}

// LearningStreak counts consecutive days with learning activity.
type LearningStreak struct {
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
	UserID           string     `json:"user_id"`
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
}

// Achievement codes.
const (
	AchievementFirstLesson      = "first_lesson"
	AchievementCourseCompletion = "course_completion"
	AchievementWeekStreak       = "week_streak"
	AchievementMonthStreak      = "month_streak"
)

// Achievement is an award definition.
type Achievement struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"achievement_type"`
	Points      int    `json:"points"`
	IsActive    bool   `json:"is_active"`
}

// UserAchievement is an achievement earned by a user.
type UserAchievement struct {
	EarnedAt      time.Time `json:"earned_at"`
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	AchievementID string    `json:"achievement_id"`
	Code          string    `json:"code"`
	Title         string    `json:"title"`
	PointsEarned  int       `json:"points_earned"`
}
