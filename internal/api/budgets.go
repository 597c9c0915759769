package api

import (
	"net/http"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.engine.BudgetStatuses(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

type budgetRequest struct {
	StartDate      date               `json:"start_date"`
	EndDate        date               `json:"end_date"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	Name           string             `json:"name"`
	CategoryID     string             `json:"category_id"`
	Period         model.BudgetPeriod `json:"period"`
	AlertThreshold int                `json:"alert_threshold"`
	AlertEnabled   *bool              `json:"alert_enabled"`
}

func (s *Server) createBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b := &model.Budget{
		UserID:         userID(r),
		Name:           req.Name,
		CategoryID:     req.CategoryID,
		Period:         req.Period,
		TotalAmount:    req.TotalAmount,
		StartDate:      req.StartDate.Time,
		EndDate:        req.EndDate.Time,
		AlertThreshold: req.AlertThreshold,
		AlertEnabled:   true,
	}
	if req.AlertEnabled != nil {
		b.AlertEnabled = *req.AlertEnabled
	}
	if err := s.engine.CreateBudget(r.Context(), b); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.BudgetStatus(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type allocationRequest struct {
	Amount         decimal.Decimal `json:"allocated_amount"`
	CategoryID     string          `json:"category_id"`
	AlertThreshold int             `json:"alert_threshold"`
}

func (s *Server) addAllocation(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a := &model.BudgetAllocation{
		BudgetID:       mux.Vars(r)["id"],
		CategoryID:     req.CategoryID,
		Amount:         req.Amount,
		AlertThreshold: req.AlertThreshold,
	}
	if err := s.engine.AddAllocation(r.Context(), userID(r), a); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.engine.Goals(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

type goalRequest struct {
	TargetDate            date                        `json:"target_date"`
	TargetAmount          decimal.Decimal             `json:"target_amount"`
	ContributionAmount    decimal.Decimal             `json:"contribution_amount"`
	Name                  string                      `json:"name"`
	Description           string                      `json:"description"`
	GoalType              string                      `json:"goal_type"`
	ContributionFrequency model.ContributionFrequency `json:"contribution_frequency"`
	AutoContribute        bool                        `json:"auto_contribute"`
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	g := &model.Goal{
		UserID:                userID(r),
		Name:                  req.Name,
		Description:           req.Description,
		GoalType:              req.GoalType,
		TargetAmount:          req.TargetAmount,
		TargetDate:            req.TargetDate.Time,
		AutoContribute:        req.AutoContribute,
		ContributionAmount:    req.ContributionAmount,
		ContributionFrequency: req.ContributionFrequency,
	}
	if err := s.engine.CreateGoal(r.Context(), g); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.NewGoalProgress(*g))
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request) {
	detail, err := s.engine.Goal(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type contributionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"description"`
}

func (s *Server) contribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.Contribute(r.Context(), userID(r), mux.Vars(r)["id"], req.Amount, req.Note)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

type milestoneRequest struct {
	TargetPercentage decimal.Decimal `json:"target_percentage"`
	Name             string          `json:"name"`
}

func (s *Server) addMilestone(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m := &model.GoalMilestone{
		GoalID:           mux.Vars(r)["id"],
		Name:             req.Name,
		TargetPercentage: req.TargetPercentage,
	}
	if err := s.engine.AddMilestone(r.Context(), userID(r), m); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type statusRequest struct {
	Status model.GoalStatus `json:"status"`
}

func (s *Server) setGoalStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.SetGoalStatus(r.Context(), userID(r), mux.Vars(r)["id"], req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listGoalTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.engine.GoalTemplates(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

type goalTemplateRequest struct {
	DefaultTargetAmount   decimal.Decimal `json:"default_target_amount"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	GoalType              string          `json:"goal_type"`
	Icon                  string          `json:"icon"`
	SuggestedDurationDays int             `json:"suggested_duration_days"`
}

func (s *Server) createGoalTemplate(w http.ResponseWriter, r *http.Request) {
	var req goalTemplateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t := &model.GoalTemplate{
		UserID:                userID(r),
		Name:                  req.Name,
		Description:           req.Description,
		GoalType:              req.GoalType,
		Icon:                  req.Icon,
		DefaultTargetAmount:   req.DefaultTargetAmount,
		SuggestedDurationDays: req.SuggestedDurationDays,
	}
	if t.SuggestedDurationDays == 0 {
		t.SuggestedDurationDays = 365
	}
	if err := s.engine.CreateGoalTemplate(r.Context(), t); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

type fromTemplateRequest struct {
	TargetDate   date            `json:"target_date"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	TemplateID   string          `json:"template_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
}

func (s *Server) createGoalFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req fromTemplateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.TemplateID == "" {
		s.writeError(w, r, common.NewValidationError("template_id", "is required"))
		return
	}
	g, err := s.engine.CreateGoalFromTemplate(r.Context(), userID(r), req.TemplateID, engine.TemplateOverrides{
		TargetDate:   req.TargetDate.Time,
		TargetAmount: req.TargetAmount,
		Name:         req.Name,
		Description:  req.Description,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.NewGoalProgress(*g))
}
