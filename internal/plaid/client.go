// Package plaid syncs accounts and transactions from the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/plaid/plaid-go/v20/plaid"
)

const (
	// pageSize is the largest page transactions/get returns.
	pageSize = int32(500)

	dateLayout = "2006-01-02"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if c.AccessToken == "" {
		return fmt.Errorf("plaid access token is required: %w", common.ErrMissingConfig)
	}
	return nil
}

// validateCredentials checks everything except the access token, which the
// link flow does not have yet.
func (c *Config) validateCredentials() error {
	switch {
	case c.ClientID == "":
		return fmt.Errorf("plaid client ID is required: %w", common.ErrMissingConfig)
	case c.Secret == "":
		return fmt.Errorf("plaid secret is required: %w", common.ErrMissingConfig)
	case c.Environment == "":
		return fmt.Errorf("plaid environment is required: %w", common.ErrMissingConfig)
	case c.Environment != "sandbox" && c.Environment != "production":
		return fmt.Errorf("invalid Plaid environment %q, must be sandbox or production: %w", c.Environment, common.ErrInvalidConfig)
	}
	return nil
}

// Client implements Fetcher against the Plaid API.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   common.RetryOptions
	accessToken string
	environment string
}

// NewClient creates a new Plaid client. The access token may be empty when
// the client is only used to link an institution.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.validateCredentials(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	if cfg.Environment == "production" {
		configuration.UseEnvironment(plaid.Production)
	} else {
		configuration.UseEnvironment(plaid.Sandbox)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		environment: cfg.Environment,
		logger:      logger.With("component", "plaid"),
		retryOpts: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

func (c *Client) requireToken() error {
	if c.accessToken == "" {
		return fmt.Errorf("plaid access token is required: %w", common.ErrMissingConfig)
	}
	return nil
}

// Accounts fetches every account on the item.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}

	var raw []plaid.AccountBase
	err := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.classify(err, "failed to fetch accounts")
		}
		raw = resp.GetAccounts()
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(raw))
	for _, a := range raw {
		balances := a.GetBalances()
		accounts = append(accounts, Account{
			ID:           a.GetAccountId(),
			Name:         a.GetName(),
			OfficialName: a.GetOfficialName(),
			Mask:         a.GetMask(),
			Type:         string(a.GetType()),
			Subtype:      string(a.GetSubtype()),
			Current:      balances.GetCurrent(),
			Limit:        balances.GetLimit(),
		})
	}

	c.logger.Info("fetched accounts", "count", len(accounts))
	return accounts, nil
}

// Transactions fetches posted and pending transactions in the date range,
// one page at a time.
func (c *Client) Transactions(ctx context.Context, startDate, endDate time.Time) ([]Transaction, error) {
	if err := c.requireToken(); err != nil {
		return nil, err
	}
	if startDate.After(endDate) {
		return nil, common.NewValidationError("start_date", "must not be after end_date")
	}

	c.logger.Info("fetching transactions",
		"start_date", startDate.Format(dateLayout),
		"end_date", endDate.Format(dateLayout))

	var all []Transaction
	for offset := int32(0); ; offset += pageSize {
		var page []plaid.Transaction
		var total int32
		err := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(c.accessToken, startDate.Format(dateLayout), endDate.Format(dateLayout))
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})
			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.classify(err, "failed to fetch transactions")
			}
			page = resp.GetTransactions()
			total = resp.GetTotalTransactions()
			return nil
		}, c.retryOpts)
		if err != nil {
			return nil, err
		}

		c.logger.Debug("fetched transaction page", "count", len(page), "offset", offset, "total", total)
		for _, pt := range page {
			all = append(all, c.convert(pt))
		}

		if len(page) < int(pageSize) || int32(len(all)) >= total {
			break
		}
	}

	c.logger.Info("fetched all transactions", "count", len(all))
	return all, nil
}

func (c *Client) convert(pt plaid.Transaction) Transaction {
	date, err := time.Parse(dateLayout, pt.GetDate())
	if err != nil {
		c.logger.Warn("unparseable transaction date", "date", pt.GetDate(), "error", err)
	}
	return Transaction{
		Date:         date,
		ID:           pt.GetTransactionId(),
		AccountID:    pt.GetAccountId(),
		Name:         pt.GetName(),
		MerchantName: pt.GetMerchantName(),
		Amount:       pt.GetAmount(),
		Pending:      pt.GetPending(),
	}
}

// classify turns an API failure into a retry decision. Only rate limits and
// transport failures are retried.
func (c *Client) classify(err error, action string) error {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return &common.RetryableError{Err: fmt.Errorf("%s: %w", action, err), Retryable: true}
	}
	if plaidErr.ErrorCode == "RATE_LIMIT_EXCEEDED" {
		c.logger.Warn("rate limit hit, will retry", "error", plaidErr.ErrorMessage)
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s", common.ErrPlaidRateLimit, plaidErr.ErrorMessage),
			Retryable: true,
		}
	}
	return &common.RetryableError{
		Err: fmt.Errorf("%w: %s - %s", common.ErrPlaidConnection, plaidErr.ErrorCode, plaidErr.ErrorMessage),
	}
}

// CreateLinkToken creates a token for initializing Plaid Link in a browser.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	request := plaid.NewLinkTokenCreateRequest(
		"FinSight",
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		plaid.LinkTokenCreateRequestUser{ClientUserId: userID},
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	resp, _, err := c.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", c.classify(err, "failed to create link token")
	}
	return resp.GetLinkToken(), nil
}

// ExchangePublicToken trades the token returned by Link for an access token
// and item id.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	request := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := c.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
	if err != nil {
		return "", "", c.classify(err, "failed to exchange public token")
	}
	return resp.GetAccessToken(), resp.GetItemId(), nil
}

var _ Fetcher = (*Client)(nil)
