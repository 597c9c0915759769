package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// Source tags batches produced by this package.
const Source = "ofx"

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagPattern  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser reads OFX/QFX statements into import batches.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With("component", "ofx")}
}

// preprocess fixes formatting issues common in bank exports.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some SGML exports drop the closing bracket of a bare opening tag.
	return openTagPattern.ReplaceAllString(content, "$1>")
}

// Parse reads every bank and credit card statement in r. Accounts are keyed
// by ACCTID, and each transaction's AccountID carries that same key.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (engine.ImportBatch, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return engine.ImportBatch{}, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return engine.ImportBatch{}, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return engine.ImportBatch{}, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	batch := engine.ImportBatch{Source: Source}
	institution := string(resp.Signon.Org)

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		acctID := string(stmt.BankAcctFrom.AcctID)
		acctType := mapAccountType(stmt.BankAcctFrom.AcctType)
		batch.Accounts = append(batch.Accounts, statementAccount(acctID, acctType, institution, &stmt.BalAmt))
		batch.Transactions = append(batch.Transactions, p.transactions(stmt.BankTranList, acctID)...)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		acctID := string(stmt.CCAcctFrom.AcctID)
		batch.Accounts = append(batch.Accounts, statementAccount(acctID, model.AccountTypeCredit, institution, &stmt.BalAmt))
		batch.Transactions = append(batch.Transactions, p.transactions(stmt.BankTranList, acctID)...)
	}

	p.logger.Info("parsed OFX file",
		"accounts", len(batch.Accounts),
		"transactions", len(batch.Transactions))

	return batch, nil
}

func statementAccount(acctID string, acctType model.AccountType, institution string, balance *ofxgo.Amount) model.Account {
	return model.Account{
		ExternalID:  acctID,
		Name:        accountName(acctType, acctID),
		Type:        acctType,
		Institution: institution,
		Balance:     toDecimal(balance),
		IsActive:    true,
	}
}

// accountName labels an account by type and the last four digits.
func accountName(t model.AccountType, acctID string) string {
	suffix := acctID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	name := string(t)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s ...%s", name, suffix)
}

// mapAccountType folds OFX account types into ours. Money market and CD
// accounts count as savings.
func mapAccountType(t fmt.Stringer) model.AccountType {
	switch t.String() {
	case "CHECKING":
		return model.AccountTypeChecking
	case "SAVINGS", "MONEYMRKT", "CD":
		return model.AccountTypeSavings
	case "CREDITLINE":
		return model.AccountTypeCredit
	}
	return model.AccountTypeChecking
}

func (p *Parser) transactions(list *ofxgo.TransactionList, acctID string) []model.Transaction {
	if list == nil {
		return nil
	}
	txns := make([]model.Transaction, 0, len(list.Transactions))
	for i := range list.Transactions {
		txn, ok := convertTransaction(&list.Transactions[i], acctID)
		if !ok {
			p.logger.Debug("skipping zero amount transaction", "fitid", list.Transactions[i].FiTID)
			continue
		}
		txns = append(txns, txn)
	}
	return txns
}

// convertTransaction maps a statement line. OFX signs amounts from the
// account holder's side: debits are negative.
func convertTransaction(in *ofxgo.Transaction, acctID string) (model.Transaction, bool) {
	amount := toDecimal(&in.TrnAmt)
	if amount.IsZero() {
		return model.Transaction{}, false
	}

	txnType := model.TransactionTypeIncome
	if amount.IsNegative() {
		txnType = model.TransactionTypeExpense
	}

	description := strings.TrimSpace(string(in.Name))
	if description == "" {
		description = strings.TrimSpace(string(in.Memo))
	}

	return model.Transaction{
		Date:        in.DtPosted.Time,
		Amount:      amount.Abs(),
		AccountID:   acctID,
		Type:        txnType,
		Description: description,
		Merchant:    extractMerchantName(in),
	}, true
}

func toDecimal(a *ofxgo.Amount) decimal.Decimal {
	return decimal.NewFromBigRat(&a.Rat, 2)
}

var purchasePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// extractMerchantName gets a clean merchant name from the payee, name or
// memo fields.
func extractMerchantName(tx *ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range purchasePrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// "MM/DD " left over from authorization prefixes
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}
