package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/finsight/internal/cli"
	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/config"
	"github.com/Veraticus/finsight/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the financial report to Google Sheets",
		Long: `Write the current financial report (health, budgets, goals and the
spending forecast) to a Google Sheets spreadsheet.

Authenticate with either a service account (sheets.service_account_path)
or OAuth2 (sheets.client_id, sheets.client_secret and a refresh token from
"finsight export auth").`,
		RunE: runExport,
	}
	addUserFlag(cmd)
	cmd.Flags().String("spreadsheet", "", "spreadsheet id (default: sheets.spreadsheet_id, or a new spreadsheet)")
	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("spreadsheet"))

	cmd.AddCommand(exportAuthCmd())
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return err
	}
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	report, err := s.engine.Report(ctx, s.user.ID)
	if err != nil {
		return err
	}
	writer, err := sheets.NewWriter(ctx, *cfg, slog.Default())
	if err != nil {
		return err
	}
	if err := writer.Write(ctx, report); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Report exported to Google Sheets"))
	return nil
}

func exportAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Google Sheets access with OAuth2",
		Long: `Run the OAuth2 consent flow in your browser and print the refresh token
to put in sheets.refresh_token. The token is also saved next to the config
file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID, _ := cmd.Flags().GetString("client-id")
			clientSecret, _ := cmd.Flags().GetString("client-secret")
			if clientID == "" {
				clientID = firstSet(viper.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
			}
			if clientSecret == "" {
				clientSecret = firstSet(viper.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
			}
			if clientID == "" || clientSecret == "" {
				return common.NewUserError("set sheets.client_id and sheets.client_secret, or pass --client-id and --client-secret", common.ErrMissingConfig)
			}

			listen, _ := cmd.Flags().GetString("listen")
			tokenFile := filepath.Join(config.DefaultConfigDir(), "sheets-token.json")
			slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)

			token, err := sheets.Authorize(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				ListenAddr:   listen,
				TokenFile:    tokenFile,
			}, slog.Default())
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Google Sheets authorized"))
			fmt.Fprintln(out, cli.FormatInfo("Add this to your config as sheets.refresh_token:"))
			fmt.Fprintln(out, token.RefreshToken)
			return nil
		},
	}
	cmd.Flags().String("client-id", "", "OAuth2 client id")
	cmd.Flags().String("client-secret", "", "OAuth2 client secret")
	cmd.Flags().String("listen", "", "callback listener address (default: localhost:8085)")
	return cmd
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
