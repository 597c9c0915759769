package model

import "time"

// CategoryType indicates which kind of transaction a category applies to.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeTransfer represents transfers between own accounts.
	CategoryTypeTransfer CategoryType = "transfer"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryTypeIncome, CategoryTypeExpense, CategoryTypeTransfer:
		return true
	}
	return false
}

// Category groups transactions, optionally under a parent.
type Category struct {
	CreatedAt time.Time    `json:"created_at"`
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"category_type"`
	ParentID  string       `json:"parent_id,omitempty"`
}

// FormsCycle reports whether giving categoryID the parent parentID would
// create a loop. parents maps category id to its current parent id.
func FormsCycle(categoryID, parentID string, parents map[string]string) bool {
	seen := make(map[string]bool)
	for cur := parentID; cur != ""; cur = parents[cur] {
		if cur == categoryID || seen[cur] {
			return true
		}
		seen[cur] = true
	}
	return false
}
