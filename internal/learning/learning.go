// Package learning tracks course progress, daily learning streaks and the
// achievements they unlock.
package learning

import (
	"time"

	"github.com/Veraticus/finsight/internal/model"
)

// UpdateCourseProgress recomputes progress after completed of total lessons
// are done. started_at and completed_at are set once and never reset.
func UpdateCourseProgress(p model.CourseProgress, completed, total int, now time.Time) model.CourseProgress {
	p.CompletedLessons = completed
	p.UpdatedAt = now
	if total <= 0 {
		p.CompletionPercentage = 0
		return p
	}

	pct := float64(completed) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	p.CompletionPercentage = pct

	if pct > 0 && p.StartedAt == nil {
		startedAt := now
		p.StartedAt = &startedAt
	}

	switch {
	case pct >= 100:
		p.Status = model.CourseCompleted
		if p.CompletedAt == nil {
			completedAt := now
			p.CompletedAt = &completedAt
		}
	case pct > 0 && p.Status != model.CourseCompleted:
		p.Status = model.CourseInProgress
	case p.Status == "":
		p.Status = model.CourseNotStarted
	}

	return p
}

// StreakChange describes what UpdateStreak did.
type StreakChange int

// Streak changes.
const (
	// StreakSameDay means activity was already counted today.
	StreakSameDay StreakChange = iota
	// StreakContinued means yesterday's streak was extended.
	StreakContinued
	// StreakReset means the streak was broken, or never existed, and
	// restarts at one.
	StreakReset
)

// UpdateStreak records learning activity on today. Dates compare by
// calendar day in today's location.
func UpdateStreak(s model.LearningStreak, today time.Time) (model.LearningStreak, StreakChange) {
	day := model.DayOf(today)

	if s.LastActivityDate != nil {
		last := model.DayOf(s.LastActivityDate.In(today.Location()))
		switch {
		case last.Equal(day):
			return s, StreakSameDay
		case last.AddDate(0, 0, 1).Equal(day):
			s.CurrentStreak++
			s.LongestStreak = max(s.LongestStreak, s.CurrentStreak)
			s.LastActivityDate = &day
			return s, StreakContinued
		}
	}

	s.CurrentStreak = 1
	s.LongestStreak = max(s.LongestStreak, s.CurrentStreak)
	s.LastActivityDate = &day
	return s, StreakReset
}

// AchievementsFor returns the achievement codes earned by a lesson
// completion. totalCompleted counts every lesson the user has finished,
// including this one.
func AchievementsFor(totalCompleted int, course model.CourseProgress, streak model.LearningStreak) []string {
	var codes []string
	if totalCompleted == 1 {
		codes = append(codes, model.AchievementFirstLesson)
	}
	if course.Status == model.CourseCompleted {
		codes = append(codes, model.AchievementCourseCompletion)
	}
	switch streak.CurrentStreak {
	case 7:
		codes = append(codes, model.AchievementWeekStreak)
	case 30:
		codes = append(codes, model.AchievementMonthStreak)
	}
	return codes
}
