package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User owns every other record.
type User struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
}

// AccountType classifies an account.
type AccountType string

// Account types.
const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeLoan       AccountType = "loan"
)

// AccountTypes lists every valid account type.
var AccountTypes = []AccountType{
	AccountTypeChecking,
	AccountTypeSavings,
	AccountTypeCredit,
	AccountTypeInvestment,
	AccountTypeLoan,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Account is a bank, card, investment or loan account.
type Account struct {
	CreatedAt   time.Time       `json:"created_at"`
	Balance     decimal.Decimal `json:"balance"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"account_type"`
	Institution string          `json:"institution,omitempty"`
	ExternalID  string          `json:"external_id,omitempty"`
	IsActive    bool            `json:"is_active"`
}

// IsLiquid reports whether the balance counts toward the emergency fund.
func (a *Account) IsLiquid() bool {
	return a.Type == AccountTypeChecking || a.Type == AccountTypeSavings
}

// IsLiability reports whether the balance is money owed.
func (a *Account) IsLiability() bool {
	return a.Type == AccountTypeCredit || a.Type == AccountTypeLoan
}

// Owed returns the outstanding liability. Liabilities may be stored either
// as negative balances or positive amounts owed.
func (a *Account) Owed() decimal.Decimal {
	if !a.IsLiability() {
		return decimal.Zero
	}
	return a.Balance.Abs()
}
