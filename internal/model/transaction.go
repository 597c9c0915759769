package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money movement.
type TransactionType string

// Transaction types.
const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// Transaction represents a single financial transaction from any source.
type Transaction struct {
	Date                 time.Time       `json:"date"`
	CreatedAt            time.Time       `json:"created_at"`
	Amount               decimal.Decimal `json:"amount"` // non-negative magnitude
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	AccountID            string          `json:"account_id"`
	DestinationAccountID string          `json:"destination_account_id,omitempty"`
	CategoryID           string          `json:"category_id,omitempty"`
	Type                 TransactionType `json:"transaction_type"`
	Description          string          `json:"description"`
	Merchant             string          `json:"merchant,omitempty"`
	Hash                 string          `json:"-"`
	IsRecurring          bool            `json:"is_recurring"`
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		strings.ToLower(strings.TrimSpace(t.Description)),
		t.AccountID,
		t.Type,
		t.UserID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// EntryHash keys a manually entered transaction. Entries sharing a
// client-supplied key collapse into one; without a key every entry is kept.
func EntryHash(userID, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "entry:" + uuid.NewString()
	}
	sum := sha256.Sum256([]byte("entry:" + userID + ":" + key))
	return fmt.Sprintf("%x", sum)
}

// BalanceDelta returns the signed change applied to the source account.
func (t *Transaction) BalanceDelta() decimal.Decimal {
	switch t.Type {
	case TransactionTypeIncome:
		return t.Amount
	case TransactionTypeExpense, TransactionTypeTransfer:
		return t.Amount.Neg()
	}
	return decimal.Zero
}
