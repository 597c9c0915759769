// Package api exposes the finance engine as a JSON REST API under /api.
// Every /api route requires an HS256 bearer token carrying a user_id claim.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/service"
	"github.com/gorilla/mux"
)

// Assistant answers the AI endpoints.
type Assistant interface {
	Insights(ctx context.Context, data any) []string
	engine.Responder
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine    *engine.Engine
	store     service.Storage
	assistant Assistant
	logger    *slog.Logger
	now       func() time.Time
	router    *mux.Router
	secret    []byte
}

// Option configures a Server.
type Option func(*Server)

// WithAssistant enables the /api/ai routes. Without one they answer 503.
func WithAssistant(a Assistant) Option {
	return func(s *Server) { s.assistant = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a server. secret verifies bearer tokens.
func New(e *engine.Engine, secret []byte, opts ...Option) *Server {
	s := &Server{
		engine: e,
		store:  e.Store(),
		secret: secret,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "api")
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no such route"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authenticate)

	api.HandleFunc("/me", s.getMe).Methods(http.MethodGet)
	api.HandleFunc("/report", s.getReport).Methods(http.MethodGet)

	api.HandleFunc("/accounts", s.listAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", s.createAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}", s.getAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", s.updateAccount).Methods(http.MethodPatch)

	api.HandleFunc("/transactions", s.listTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.createTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.getTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}/category", s.setTransactionCategory).Methods(http.MethodPut)

	api.HandleFunc("/categories", s.listCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.createCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", s.updateCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", s.deleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/budgets", s.listBudgets).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.createBudget).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}", s.getBudget).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}/allocations", s.addAllocation).Methods(http.MethodPost)

	api.HandleFunc("/goals", s.listGoals).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.createGoal).Methods(http.MethodPost)
	api.HandleFunc("/goals/templates", s.listGoalTemplates).Methods(http.MethodGet)
	api.HandleFunc("/goals/templates", s.createGoalTemplate).Methods(http.MethodPost)
	api.HandleFunc("/goals/from-template", s.createGoalFromTemplate).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}", s.getGoal).Methods(http.MethodGet)
	api.HandleFunc("/goals/{id}/contributions", s.contribute).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}/milestones", s.addMilestone).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}/status", s.setGoalStatus).Methods(http.MethodPut)

	api.HandleFunc("/health/score", s.getHealthScore).Methods(http.MethodGet)
	api.HandleFunc("/health/snapshots", s.listHealthSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/health/snapshots", s.createHealthSnapshot).Methods(http.MethodPost)
	api.HandleFunc("/health/forecast", s.getHealthForecast).Methods(http.MethodGet)
	api.HandleFunc("/forecast/spending", s.getSpendingForecast).Methods(http.MethodGet)

	api.HandleFunc("/learning", s.getLearning).Methods(http.MethodGet)
	api.HandleFunc("/learning/courses", s.listCourses).Methods(http.MethodGet)
	api.HandleFunc("/learning/lessons/{id}/complete", s.completeLesson).Methods(http.MethodPost)
	api.HandleFunc("/learning/streak", s.getStreak).Methods(http.MethodGet)
	api.HandleFunc("/learning/achievements", s.listAchievements).Methods(http.MethodGet)

	api.HandleFunc("/ai/categorize", s.categorize).Methods(http.MethodPost)
	api.HandleFunc("/ai/insights", s.insights).Methods(http.MethodGet)
	api.HandleFunc("/ai/chat", s.chat).Methods(http.MethodPost)
	api.HandleFunc("/ai/chat/history", s.chatHistory).Methods(http.MethodGet)
	api.HandleFunc("/ai/context", s.financialContext).Methods(http.MethodGet)

	api.HandleFunc("/notifications", s.listNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", s.markNotificationRead).Methods(http.MethodPost)

	s.router = r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
