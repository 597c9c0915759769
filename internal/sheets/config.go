// Package sheets exports financial reports to Google Sheets.
package sheets

import (
	"fmt"
	"time"

	"github.com/Veraticus/finsight/internal/common"
)

// DefaultSpreadsheetName titles spreadsheets created by the writer.
const DefaultSpreadsheetName = "FinSight Report"

// Config holds the configuration for the Google Sheets writer. Exactly one
// of the OAuth2 refresh token or the service account key must be set.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  DefaultSpreadsheetName,
		EnableFormatting: true,
		TimeZone:         "America/New_York",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// HasOAuth reports whether complete OAuth2 credentials are present.
func (c *Config) HasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasServiceAccount := c.ServiceAccountPath != ""

	switch {
	case !c.HasOAuth() && !hasServiceAccount:
		return fmt.Errorf("no authentication method configured: %w", common.ErrMissingConfig)
	case c.HasOAuth() && hasServiceAccount:
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account: %w", common.ErrInvalidConfig)
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive: %w", common.ErrInvalidConfig)
	case c.RetryAttempts < 0:
		return fmt.Errorf("retry attempts cannot be negative: %w", common.ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("retry delay cannot be negative: %w", common.ErrInvalidConfig)
	}
	return nil
}
