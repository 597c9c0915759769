package api

import (
	"net/http"
	"strings"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/service"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Report(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

type accountRequest struct {
	Balance     decimal.Decimal   `json:"balance"`
	CreditLimit decimal.Decimal   `json:"credit_limit"`
	Name        string            `json:"name"`
	Type        model.AccountType `json:"account_type"`
	Institution string            `json:"institution"`
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	account := &model.Account{
		UserID:      userID(r),
		Name:        req.Name,
		Type:        req.Type,
		Institution: req.Institution,
		Balance:     req.Balance,
		CreditLimit: req.CreditLimit,
		IsActive:    true,
	}
	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.store.GetAccount(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type accountPatch struct {
	Name        *string          `json:"name"`
	Institution *string          `json:"institution"`
	Balance     *decimal.Decimal `json:"balance"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
	IsActive    *bool            `json:"is_active"`
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var patch accountPatch
	if err := decode(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	account, err := s.store.GetAccount(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			s.writeError(w, r, common.NewValidationError("name", "must not be empty"))
			return
		}
		account.Name = *patch.Name
	}
	if patch.Institution != nil {
		account.Institution = *patch.Institution
	}
	if patch.Balance != nil {
		account.Balance = *patch.Balance
	}
	if patch.CreditLimit != nil {
		account.CreditLimit = *patch.CreditLimit
	}
	if patch.IsActive != nil {
		account.IsActive = *patch.IsActive
	}
	if err := s.store.UpdateAccount(r.Context(), account); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.TransactionFilter{
		AccountID:  q.Get("account_id"),
		CategoryID: q.Get("category_id"),
		Type:       model.TransactionType(q.Get("type")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		s.writeError(w, r, common.NewValidationError("type", "unknown transaction type"))
		return
	}
	var err error
	if filter.StartDate, err = queryDate(r, "start"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filter.EndDate, err = queryDate(r, "end"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 100); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		s.writeError(w, r, err)
		return
	}

	txns, err := s.engine.Transactions(r.Context(), userID(r), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

type transactionRequest struct {
	Date                 date                  `json:"date"`
	Amount               decimal.Decimal       `json:"amount"`
	AccountID            string                `json:"account_id"`
	DestinationAccountID string                `json:"destination_account_id"`
	CategoryID           string                `json:"category_id"`
	Type                 model.TransactionType `json:"transaction_type"`
	Description          string                `json:"description"`
	Merchant             string                `json:"merchant"`
	IsRecurring          bool                  `json:"is_recurring"`
	IdempotencyKey       string                `json:"idempotency_key"`
}

type transactionResponse struct {
	Transaction *model.Transaction `json:"transaction"`
	Duplicate   bool               `json:"duplicate"`
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	txn := &model.Transaction{
		UserID:               userID(r),
		Date:                 req.Date.Time,
		Amount:               req.Amount,
		AccountID:            req.AccountID,
		DestinationAccountID: req.DestinationAccountID,
		CategoryID:           req.CategoryID,
		Type:                 req.Type,
		Description:          req.Description,
		Merchant:             req.Merchant,
		IsRecurring:          req.IsRecurring,
	}
	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}
	created, err := s.engine.RecordTransaction(r.Context(), txn, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, transactionResponse{Transaction: txn, Duplicate: !created})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := s.store.GetTransaction(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

type categoryAssignment struct {
	CategoryID string `json:"category_id"`
}

func (s *Server) setTransactionCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryAssignment
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, uid, id := r.Context(), userID(r), mux.Vars(r)["id"]
	if req.CategoryID != "" {
		if _, err := s.store.GetCategory(ctx, uid, req.CategoryID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := s.store.UpdateTransactionCategory(ctx, uid, id, req.CategoryID); err != nil {
		s.writeError(w, r, err)
		return
	}
	txn, err := s.store.GetTransaction(ctx, uid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type categoryRequest struct {
	Name     string             `json:"name"`
	Type     model.CategoryType `json:"category_type"`
	ParentID string             `json:"parent_id"`
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	category := &model.Category{UserID: userID(r), Name: req.Name, Type: req.Type, ParentID: req.ParentID}
	if err := s.store.CreateCategory(r.Context(), category); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := s.store.GetCategory(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	category.Name = req.Name
	category.Type = req.Type
	category.ParentID = req.ParentID
	if err := s.store.UpdateCategory(r.Context(), category); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
