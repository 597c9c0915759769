//go:build integration

package sheets

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func integrationConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SpreadsheetName = "FinSight Report - Integration"
	cfg.SpreadsheetID = os.Getenv("FINSIGHT_SHEETS_SPREADSHEET_ID")

	if path := os.Getenv("FINSIGHT_SHEETS_SERVICE_ACCOUNT_PATH"); path != "" {
		cfg.ServiceAccountPath = path
		return cfg
	}

	cfg.ClientID = os.Getenv("FINSIGHT_SHEETS_CLIENT_ID")
	cfg.ClientSecret = os.Getenv("FINSIGHT_SHEETS_CLIENT_SECRET")
	cfg.RefreshToken = os.Getenv("FINSIGHT_SHEETS_REFRESH_TOKEN")
	if !cfg.HasOAuth() {
		t.Skip("Google Sheets credentials not available")
	}
	return cfg
}

func TestWriterIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	writer, err := NewWriter(ctx, integrationConfig(t), slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	require.NoError(t, writer.Write(ctx, sampleReport()))
}
