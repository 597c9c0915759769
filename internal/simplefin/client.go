// Package simplefin syncs accounts and transactions from a SimpleFIN Bridge.
package simplefin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// Source tags batches produced by this package.
const Source = "simplefin"

const requestTimeout = 30 * time.Second

type accountSet struct {
	Errors   []string  `json:"errors"`
	Accounts []account `json:"accounts"`
}

type org struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

type account struct {
	Org          org           `json:"org"`
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Currency     string        `json:"currency"`
	Balance      string        `json:"balance"`
	Transactions []transaction `json:"transactions"`
}

type transaction struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Payee       string `json:"payee"`
	Posted      int64  `json:"posted"`
	Pending     bool   `json:"pending"`
}

// Client reads from a bridge access URL. The URL carries the credentials as
// userinfo.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   *url.URL
	retryOpts  common.RetryOptions
	username   string
	password   string
}

// NewClient validates the access URL and builds a client for it.
func NewClient(accessURL string, logger *slog.Logger) (*Client, error) {
	if accessURL == "" {
		return nil, fmt.Errorf("simplefin access URL is required: %w", common.ErrMissingConfig)
	}
	u, err := parseHTTPURL(accessURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.With("component", "simplefin"),
		retryOpts: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
	if u.User != nil {
		c.username = u.User.Username()
		c.password, _ = u.User.Password()
		u.User = nil
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/accounts"
	c.endpoint = u
	return c, nil
}

// Claim exchanges a one-time setup token for an access URL. The token is the
// base64 encoded claim URL handed out by the bridge.
func Claim(ctx context.Context, setupToken string, httpClient *http.Client) (string, error) {
	token := strings.TrimSpace(setupToken)
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(token)
		if err != nil {
			return "", common.NewValidationError("setup_token", "not valid base64")
		}
	}
	claimURL, err := parseHTTPURL(string(decoded))
	if err != nil {
		return "", common.NewValidationError("setup_token", "does not decode to a claim URL")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claimURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create claim request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to claim access URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read claim response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// A token can be claimed once; a second attempt is forbidden.
		return "", fmt.Errorf("failed to claim access URL: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	accessURL := strings.TrimSpace(string(body))
	if _, err := parseHTTPURL(accessURL); err != nil {
		return "", fmt.Errorf("bridge returned an invalid access URL: %w", err)
	}
	return accessURL, nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%q is not an http(s) URL: %w", raw, common.ErrInvalidConfig)
	}
	return u, nil
}

// Fetch reads accounts and the posted transactions between start and end,
// both inclusive, and maps them into an import batch.
func (c *Client) Fetch(ctx context.Context, start, end time.Time) (engine.ImportBatch, error) {
	set, err := c.accounts(ctx, start, end)
	if err != nil {
		return engine.ImportBatch{}, err
	}
	for _, msg := range set.Errors {
		c.logger.Warn("bridge reported a problem", "message", msg)
	}

	batch := engine.ImportBatch{Source: Source}
	var pending, outside int
	for _, a := range set.Accounts {
		acct, err := mapAccount(a)
		if err != nil {
			return engine.ImportBatch{}, err
		}
		batch.Accounts = append(batch.Accounts, acct)

		for _, t := range a.Transactions {
			if t.Pending {
				pending++
				continue
			}
			txn, ok, err := mapTransaction(a.ID, t)
			if err != nil {
				return engine.ImportBatch{}, err
			}
			if !ok {
				continue
			}
			if txn.Date.Before(dayStart(start)) || txn.Date.After(dayStart(end).AddDate(0, 0, 1).Add(-time.Nanosecond)) {
				outside++
				continue
			}
			batch.Transactions = append(batch.Transactions, txn)
		}
	}

	c.logger.Info("sync fetched",
		"accounts", len(batch.Accounts),
		"transactions", len(batch.Transactions),
		"pending_skipped", pending,
		"outside_range", outside)
	return batch, nil
}

func (c *Client) accounts(ctx context.Context, start, end time.Time) (*accountSet, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("start-date", strconv.FormatInt(dayStart(start).Unix(), 10))
	// end-date is exclusive.
	q.Set("end-date", strconv.FormatInt(dayStart(end).AddDate(0, 0, 1).Unix(), 10))
	u.RawQuery = q.Encode()

	var set accountSet
	err := common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err)}
		}
		if c.username != "" {
			req.SetBasicAuth(c.username, c.password)
		}
		req.Header.Set("Accept", "application/json")

		c.logger.Debug("requesting accounts", "start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to fetch accounts: %w", err), Retryable: true}
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return &common.RetryableError{
				Err:       fmt.Errorf("simplefin: %w", common.ErrRateLimit),
				After:     retryAfter(resp.Header.Get("Retry-After")),
				Retryable: true,
			}
		case resp.StatusCode >= http.StatusInternalServerError:
			return &common.RetryableError{Err: fmt.Errorf("simplefin server error: %d", resp.StatusCode), Retryable: true}
		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
			return &common.RetryableError{Err: fmt.Errorf("simplefin access was revoked or is invalid: %w", common.ErrInvalidConfig)}
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return &common.RetryableError{Err: fmt.Errorf("simplefin error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))}
		}

		set = accountSet{}
		if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to decode accounts: %w", err)}
		}
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// mapAccount converts a bridge account. The bridge reports no account type,
// so a negative balance is read as a credit card.
func mapAccount(a account) (model.Account, error) {
	balance, err := decimal.NewFromString(strings.TrimSpace(a.Balance))
	if err != nil {
		return model.Account{}, fmt.Errorf("account %s has an invalid balance %q: %w", a.ID, a.Balance, err)
	}
	acct := model.Account{
		ExternalID:  a.ID,
		Name:        a.Name,
		Institution: a.Org.Name,
		Type:        model.AccountTypeChecking,
		Balance:     balance.Round(2),
		IsActive:    true,
	}
	if acct.Name == "" {
		acct.Name = a.ID
	}
	if balance.IsNegative() {
		acct.Type = model.AccountTypeCredit
	}
	return acct, nil
}

// mapTransaction converts a posted transaction, where a negative amount is
// money leaving the account. Zero amounts are dropped.
func mapTransaction(accountID string, t transaction) (model.Transaction, bool, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(t.Amount))
	if err != nil {
		return model.Transaction{}, false, fmt.Errorf("transaction %s has an invalid amount %q: %w", t.ID, t.Amount, err)
	}
	amount = amount.Round(2)
	if amount.IsZero() {
		return model.Transaction{}, false, nil
	}

	txnType := model.TransactionTypeIncome
	if amount.IsNegative() {
		txnType = model.TransactionTypeExpense
	}
	merchant := t.Payee
	if merchant == "" {
		merchant = t.Description
	}

	return model.Transaction{
		Date:        time.Unix(t.Posted, 0).UTC(),
		Amount:      amount.Abs(),
		AccountID:   accountID,
		Type:        txnType,
		Description: t.Description,
		Merchant:    model.CleanMerchant(merchant),
	}, true, nil
}
