package api

import (
	"errors"
	"net/http"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/gorilla/mux"
)

const defaultSnapshotLimit = 12

func (s *Server) getHealthScore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.HealthScore(r.Context(), userID(r)))
}

func (s *Server) createHealthSnapshot(w http.ResponseWriter, r *http.Request) {
	score, err := s.engine.SnapshotHealthScore(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, score)
}

func (s *Server) listHealthSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultSnapshotLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snapshots, err := s.engine.HealthSnapshots(r.Context(), userID(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) getHealthForecast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ForecastHealth(r.Context(), userID(r)))
}

func (s *Server) getSpendingForecast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ForecastSpending(r.Context(), userID(r)))
}

func (s *Server) getLearning(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Learning(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type courseView struct {
	model.Course
	Progress *model.CourseProgress `json:"progress,omitempty"`
}

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	progress, err := s.store.ListCourseProgress(ctx, userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	byCourse := make(map[string]*model.CourseProgress, len(progress))
	for i := range progress {
		byCourse[progress[i].CourseID] = &progress[i]
	}

	views := make([]courseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, courseView{Course: c, Progress: byCourse[c.ID]})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) completeLesson(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.CompleteLesson(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getStreak(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Learning(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary.Streak)
}

type achievementView struct {
	model.Achievement
	Earned *model.UserAchievement `json:"earned,omitempty"`
}

func (s *Server) listAchievements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	all, err := s.store.ListAchievements(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	earned, err := s.store.ListUserAchievements(ctx, userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	byID := make(map[string]*model.UserAchievement, len(earned))
	for i := range earned {
		byID[earned[i].AchievementID] = &earned[i]
	}
	views := make([]achievementView, 0, len(all))
	for _, a := range all {
		views = append(views, achievementView{Achievement: a, Earned: byID[a.ID]})
	}
	writeJSON(w, http.StatusOK, views)
}

type categorizeRequest struct {
	TransactionID string `json:"transaction_id"`
}

type categorizeResponse struct {
	TransactionID string `json:"transaction_id"`
	CategoryID    string `json:"category_id,omitempty"`
	Categorized   bool   `json:"categorized"`
}

func (s *Server) categorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.TransactionID == "" {
		s.writeError(w, r, common.NewValidationError("transaction_id", "is required"))
		return
	}
	categoryID, err := s.engine.Categorize(r.Context(), userID(r), req.TransactionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categorizeResponse{
		TransactionID: req.TransactionID,
		CategoryID:    categoryID,
		Categorized:   categoryID != "",
	})
}

var errNoAssistant = errors.New("AI assistant is not configured")

func (s *Server) requireAssistant(w http.ResponseWriter, r *http.Request) bool {
	if s.assistant == nil {
		s.writeError(w, r, errors.Join(errNoAssistant, common.ErrLLMUnavailable))
		return false
	}
	return true
}

func (s *Server) insights(w http.ResponseWriter, r *http.Request) {
	if !s.requireAssistant(w, r) {
		return
	}
	report, err := s.engine.Report(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"insights": s.assistant.Insights(r.Context(), report)})
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	if !s.requireAssistant(w, r) {
		return
	}
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	turn, err := s.engine.Chat(r.Context(), userID(r), req.ConversationID, req.Message, s.assistant)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) chatHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", engine.ChatHistoryConversations)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	convs, err := s.engine.ChatHistory(r.Context(), userID(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.Conversation{"conversations": convs})
}

func (s *Server) financialContext(w http.ResponseWriter, r *http.Request) {
	fc, err := s.engine.FinancialContext(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fc)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unread") == "true"
	notifications, err := s.store.ListNotifications(r.Context(), userID(r), unread)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.store.MarkNotificationRead(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
