package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/learning"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
)

// LessonResult reports the effects of completing a lesson.
type LessonResult struct {
	Progress model.CourseProgress    `json:"progress"`
	Streak   model.LearningStreak    `json:"streak"`
	Awarded  []model.UserAchievement `json:"awarded,omitempty"`
	// Repeat is true when the lesson had already been completed; nothing
	// else changes in that case.
	Repeat bool `json:"repeat"`
}

// CompleteLesson records a lesson completion and updates the user's course
// progress, learning streak and achievements in one transaction.
func (e *Engine) CompleteLesson(ctx context.Context, userID, lessonID string) (*LessonResult, error) {
	var result LessonResult
	err := e.inTx(ctx, func(tx service.Transaction, events *[]model.Event) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		lesson, err := tx.GetLesson(ctx, lessonID)
		if err != nil {
			return err
		}
		course, err := tx.GetCourse(ctx, lesson.CourseID)
		if err != nil {
			return err
		}

		now := e.now()
		isNew, err := tx.RecordLessonCompletion(ctx, &model.LessonCompletion{
			UserID:      userID,
			CourseID:    course.ID,
			LessonID:    lesson.ID,
			CompletedAt: now,
		})
		if err != nil {
			return err
		}

		p, err := tx.GetCourseProgress(ctx, userID, course.ID)
		if err != nil {
			return err
		}
		streak, err := tx.GetOrCreateStreak(ctx, userID)
		if err != nil {
			return err
		}
		if !isNew {
			result = LessonResult{Progress: *p, Streak: *streak, Repeat: true}
			return nil
		}

		completed, err := tx.CountCompletedLessons(ctx, userID, course.ID)
		if err != nil {
			return err
		}
		updated := learning.UpdateCourseProgress(*p, completed, course.TotalLessons, now)
		if err := tx.SaveCourseProgress(ctx, &updated); err != nil {
			return err
		}

		nextStreak, _ := learning.UpdateStreak(*streak, now)
		if err := tx.SaveStreak(ctx, &nextStreak); err != nil {
			return err
		}

		total, err := tx.CountAllCompletedLessons(ctx, userID)
		if err != nil {
			return err
		}
		result = LessonResult{Progress: updated, Streak: nextStreak}
		for _, code := range learning.AchievementsFor(total, updated, nextStreak) {
			award, err := e.award(ctx, tx, userID, code, events)
			if errors.Is(err, common.ErrNotFound) {
				e.logger.Warn("achievement not defined", "code", code)
				continue
			}
			if err != nil {
				return err
			}
			if award != nil {
				result.Awarded = append(result.Awarded, *award)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AwardAchievement grants an achievement by code. It returns the existing
// award and false when the user already holds it.
func (e *Engine) AwardAchievement(ctx context.Context, userID, code string) (*model.UserAchievement, bool, error) {
	var (
		award   *model.UserAchievement
		granted bool
	)
	err := e.inTx(ctx, func(tx service.Transaction, events *[]model.Event) error {
		a, err := tx.GetAchievementByCode(ctx, code)
		if err != nil {
			return err
		}
		award, granted, err = tx.AwardAchievement(ctx, userID, a, e.now())
		if err != nil {
			return err
		}
		if granted {
			*events = append(*events, achievementEvent(award, e.now()))
		}
		return nil
	})
	return award, granted, err
}

// award grants code inside tx and returns the award only when it is new.
func (e *Engine) award(ctx context.Context, tx service.Transaction, userID, code string, events *[]model.Event) (*model.UserAchievement, error) {
	a, err := tx.GetAchievementByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	award, granted, err := tx.AwardAchievement(ctx, userID, a, e.now())
	if err != nil {
		return nil, fmt.Errorf("failed to award %s: %w", code, err)
	}
	if !granted {
		return nil, nil
	}
	*events = append(*events, achievementEvent(award, e.now()))
	return award, nil
}

func achievementEvent(award *model.UserAchievement, at time.Time) model.Event {
	return model.Event{
		OccurredAt: at,
		Type:       model.EventAchievementAwarded,
		UserID:     award.UserID,
		EntityID:   award.AchievementID,
		Message:    fmt.Sprintf("Achievement unlocked: %s (+%d points)", award.Title, award.PointsEarned),
	}
}

// LearningSummary is a user's learning state.
type LearningSummary struct {
	Courses      []model.CourseProgress  `json:"courses"`
	Achievements []model.UserAchievement `json:"achievements"`
	Streak       model.LearningStreak    `json:"streak"`
	Points       int                     `json:"points"`
}

// Learning summarizes the user's courses, streak and achievements.
func (e *Engine) Learning(ctx context.Context, userID string) (*LearningSummary, error) {
	courses, err := e.store.ListCourseProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list course progress: %w", err)
	}
	achievements, err := e.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	streak, err := e.store.GetOrCreateStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &LearningSummary{Courses: courses, Achievements: achievements, Streak: *streak}
	for _, a := range achievements {
		summary.Points += a.PointsEarned
	}
	return summary, nil
}
