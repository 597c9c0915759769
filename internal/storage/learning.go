package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/google/uuid"
)

const courseColumns = `c.id, c.title, c.description, c.difficulty, c.is_published, c.created_at,
	(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id)`

// CreateCourse inserts a course.
func (q *queries) CreateCourse(ctx context.Context, course *model.Course) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if course == nil {
		return fmt.Errorf("%w: course", ErrNilParameter)
	}
	if strings.TrimSpace(course.Title) == "" {
		return common.NewValidationError("title", "is required")
	}
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = nowUTC()
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO courses (id, title, description, difficulty, is_published, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		course.ID, course.Title, course.Description, course.Difficulty, course.IsPublished, course.CreatedAt.UTC())
	if err != nil {
		return duplicate(err, "course")
	}
	return nil
}

// GetCourse returns a course with its lesson count.
func (q *queries) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	var c model.Course
	err := q.q.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses c WHERE c.id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.Difficulty, &c.IsPublished, &c.CreatedAt, &c.TotalLessons)
	if err != nil {
		return nil, notFound(err, "course", id)
	}
	return &c, nil
}

// ListCourses returns all courses by title.
func (q *queries) ListCourses(ctx context.Context) ([]model.Course, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses c ORDER BY c.title`)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Difficulty, &c.IsPublished, &c.CreatedAt, &c.TotalLessons); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// CreateLesson adds a lesson to a course.
func (q *queries) CreateLesson(ctx context.Context, lesson *model.Lesson) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if lesson == nil {
		return fmt.Errorf("%w: lesson", ErrNilParameter)
	}
	if err := validateString(lesson.CourseID, "course_id"); err != nil {
		return err
	}
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO lessons (id, course_id, title, position) VALUES (?, ?, ?, ?)`,
		lesson.ID, lesson.CourseID, lesson.Title, lesson.Position)
	if err != nil {
		return duplicate(err, "lesson")
	}
	return nil
}

// GetLesson returns a lesson by id.
func (q *queries) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	var l model.Lesson
	err := q.q.QueryRowContext(ctx,
		`SELECT id, course_id, title, position FROM lessons WHERE id = ?`, id).
		Scan(&l.ID, &l.CourseID, &l.Title, &l.Position)
	if err != nil {
		return nil, notFound(err, "lesson", id)
	}
	return &l, nil
}

const progressColumns = `user_id, course_id, status, completed_lessons, completion_percentage,
	started_at, completed_at, updated_at`

// GetCourseProgress returns the user's progress in a course. A user who
// has not started the course gets a not-started record.
func (q *queries) GetCourseProgress(ctx context.Context, userID, courseID string) (*model.CourseProgress, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := q.q.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM course_progress WHERE user_id = ? AND course_id = ?`, userID, courseID)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.CourseProgress{UserID: userID, CourseID: courseID, Status: model.CourseNotStarted}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course progress: %w", err)
	}
	return p, nil
}

// SaveCourseProgress upserts a progress record.
func (q *queries) SaveCourseProgress(ctx context.Context, p *model.CourseProgress) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: course progress", ErrNilParameter)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = nowUTC()
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO course_progress (`+progressColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, course_id) DO UPDATE SET
			status = excluded.status,
			completed_lessons = excluded.completed_lessons,
			completion_percentage = excluded.completion_percentage,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`,
		p.UserID, p.CourseID, string(p.Status), p.CompletedLessons, p.CompletionPercentage,
		nullTime(p.StartedAt), nullTime(p.CompletedAt), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save course progress: %w", err)
	}
	return nil
}

// ListCourseProgress returns every course the user has progress in.
func (q *queries) ListCourseProgress(ctx context.Context, userID string) ([]model.CourseProgress, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM course_progress WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query course progress: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CourseProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course progress: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// RecordLessonCompletion stores a completion once per user and lesson.
func (q *queries) RecordLessonCompletion(ctx context.Context, c *model.LessonCompletion) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if c == nil {
		return false, fmt.Errorf("%w: lesson completion", ErrNilParameter)
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = nowUTC()
	}
	res, err := q.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO lesson_completions (user_id, course_id, lesson_id, completed_at)
		VALUES (?, ?, ?, ?)`,
		c.UserID, c.CourseID, c.LessonID, c.CompletedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to record lesson completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n > 0, nil
}

// CountCompletedLessons counts the user's completed lessons in a course.
func (q *queries) CountCompletedLessons(ctx context.Context, userID, courseID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lesson_completions WHERE user_id = ? AND course_id = ?`,
		userID, courseID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}
	return n, nil
}

// CountAllCompletedLessons counts the user's completed lessons across courses.
func (q *queries) CountAllCompletedLessons(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lesson_completions WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}
	return n, nil
}

// GetOrCreateStreak returns the user's streak, creating an empty one.
func (q *queries) GetOrCreateStreak(ctx context.Context, userID string) (*model.LearningStreak, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "user_id"); err != nil {
		return nil, err
	}
	if _, err := q.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO learning_streaks (user_id) VALUES (?)`, userID); err != nil {
		return nil, fmt.Errorf("failed to create streak: %w", err)
	}

	var (
		s    = model.LearningStreak{UserID: userID}
		last sql.NullTime
	)
	err := q.q.QueryRowContext(ctx, `
		SELECT current_streak, longest_streak, last_activity_date
		FROM learning_streaks WHERE user_id = ?`, userID).
		Scan(&s.CurrentStreak, &s.LongestStreak, &last)
	if err != nil {
		return nil, notFound(err, "streak", userID)
	}
	s.LastActivityDate = timePtr(last)
	return &s, nil
}

// SaveStreak writes the streak counters.
func (q *queries) SaveStreak(ctx context.Context, s *model.LearningStreak) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("%w: streak", ErrNilParameter)
	}
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO learning_streaks (user_id, current_streak, longest_streak, last_activity_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_activity_date = excluded.last_activity_date`,
		s.UserID, s.CurrentStreak, s.LongestStreak, nullTime(s.LastActivityDate))
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}

const achievementColumns = `id, code, title, description, achievement_type, points, is_active`

// GetAchievementByCode returns an achievement definition.
func (q *queries) GetAchievementByCode(ctx context.Context, code string) (*model.Achievement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	var a model.Achievement
	err := q.q.QueryRowContext(ctx,
		`SELECT `+achievementColumns+` FROM achievements WHERE code = ?`, code).
		Scan(&a.ID, &a.Code, &a.Title, &a.Description, &a.Type, &a.Points, &a.IsActive)
	if err != nil {
		return nil, notFound(err, "achievement", code)
	}
	return &a, nil
}

// ListAchievements returns every achievement definition.
func (q *queries) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, `SELECT `+achievementColumns+` FROM achievements ORDER BY points, code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Achievement
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.Code, &a.Title, &a.Description, &a.Type, &a.Points, &a.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AwardAchievement grants an achievement once. The bool reports whether
// this call granted it.
func (q *queries) AwardAchievement(ctx context.Context, userID string, a *model.Achievement, at time.Time) (*model.UserAchievement, bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, false, err
	}
	if a == nil {
		return nil, false, fmt.Errorf("%w: achievement", ErrNilParameter)
	}
	res, err := q.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_achievements (id, user_id, achievement_id, points_earned, earned_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, a.ID, a.Points, at.UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to award achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	row := q.q.QueryRowContext(ctx, userAchievementQuery+` WHERE ua.user_id = ? AND ua.achievement_id = ?`, userID, a.ID)
	ua, err := scanUserAchievement(row)
	if err != nil {
		return nil, false, notFound(err, "user achievement", a.Code)
	}
	return ua, n > 0, nil
}

// ListUserAchievements returns the user's awards, oldest first.
func (q *queries) ListUserAchievements(ctx context.Context, userID string) ([]model.UserAchievement, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := q.q.QueryContext(ctx, userAchievementQuery+` WHERE ua.user_id = ? ORDER BY ua.earned_at, a.code`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user achievements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.UserAchievement
	for rows.Next() {
		ua, err := scanUserAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user achievement: %w", err)
		}
		out = append(out, *ua)
	}
	return out, rows.Err()
}

const userAchievementQuery = `
	SELECT ua.id, ua.user_id, ua.achievement_id, a.code, a.title, ua.points_earned, ua.earned_at
	FROM user_achievements ua JOIN achievements a ON a.id = ua.achievement_id`

func scanUserAchievement(s scanner) (*model.UserAchievement, error) {
	var ua model.UserAchievement
	if err := s.Scan(&ua.ID, &ua.UserID, &ua.AchievementID, &ua.Code, &ua.Title, &ua.PointsEarned, &ua.EarnedAt); err != nil {
		return nil, err
	}
	return &ua, nil
}

func scanProgress(s scanner) (*model.CourseProgress, error) {
	var (
		p           model.CourseProgress
		status      string
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	if err := s.Scan(&p.UserID, &p.CourseID, &status, &p.CompletedLessons, &p.CompletionPercentage,
		&startedAt, &completedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = model.CourseStatus(status)
	p.StartedAt = timePtr(startedAt)
	p.CompletedAt = timePtr(completedAt)
	return &p, nil
}
