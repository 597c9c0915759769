package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/finsight/internal/cli"
	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/config"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/plaid"
	"github.com/Veraticus/finsight/internal/simplefin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync accounts and transactions from Plaid or SimpleFIN",
		Long: `Fetch accounts and recent transactions from an aggregator and import them.
Pending transactions wait for a later sync.

With --source plaid (the default) the item in plaid.access_token is read. To
connect a bank, create a link token, complete Plaid Link with it, then
exchange the public token it returns:

  finsight sync link-token
  finsight sync exchange <public-token>

With --source simplefin the bridge in simplefin.access_url is read. Claim a
setup token from the bridge once to get that URL:

  finsight sync claim <setup-token>`,
		RunE: runSync,
	}
	addUserFlag(cmd)
	cmd.Flags().Int("days", 0, "days of history to fetch (default: plaid.sync_days)")
	cmd.Flags().String("since", "", "fetch from this date, YYYY-MM-DD")
	cmd.Flags().String("source", plaid.Source, "aggregator to sync from: plaid or simplefin")

	cmd.AddCommand(linkTokenCmd())
	cmd.AddCommand(exchangeCmd())
	cmd.AddCommand(claimCmd())
	return cmd
}

// fetcher reads an import batch for a date range from one aggregator.
type fetcher func(ctx context.Context, start, end time.Time) (engine.ImportBatch, error)

func newFetcher(source string) (fetcher, error) {
	v := viper.GetViper()
	switch source {
	case plaid.Source:
		cfg, err := config.LoadPlaidConfig(v)
		if err != nil {
			return nil, err
		}
		client, err := plaid.NewClient(cfg, slog.Default())
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, start, end time.Time) (engine.ImportBatch, error) {
			return plaid.Sync(ctx, client, start, end, slog.Default())
		}, nil
	case simplefin.Source:
		accessURL, err := config.SimpleFINAccessURL(v)
		if err != nil {
			return nil, err
		}
		client, err := simplefin.NewClient(accessURL, slog.Default())
		if err != nil {
			return nil, err
		}
		return client.Fetch, nil
	}
	return nil, common.NewValidationError("source", fmt.Sprintf("unknown source %q, want plaid or simplefin", source))
}

func runSync(cmd *cobra.Command, _ []string) error {
	source, _ := cmd.Flags().GetString("source")
	fetch, err := newFetcher(source)
	if err != nil {
		return err
	}

	end := model.DayOf(time.Now())
	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		days = viper.GetInt("plaid.sync_days")
	}
	start := end.AddDate(0, 0, -days)
	if since, _ := cmd.Flags().GetString("since"); since != "" {
		if start, err = parseDate("since", since); err != nil {
			return err
		}
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	batch, err := fetch(ctx, start, end)
	if err != nil {
		return err
	}
	autoBackup(ctx, s.store, source+"-sync")

	result, err := s.engine.Import(ctx, s.user.ID, batch)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderImportResult(batch.Source, result))
	return nil
}

func claimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <setup-token>",
		Short: "Claim a SimpleFIN setup token",
		Long: `Exchange a one-time SimpleFIN setup token for the access URL that sync
reads from. A token can be claimed only once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accessURL, err := simplefin.Claim(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Claimed SimpleFIN access"))
			fmt.Fprintln(out, cli.FormatInfo("Add this to your config as simplefin.access_url (or set SIMPLEFIN_ACCESS_URL):"))
			fmt.Fprintln(out, accessURL)
			return nil
		},
	}
}

func linkTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link-token",
		Short: "Create a Plaid Link token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := plaid.NewClient(config.PlaidCredentials(viper.GetViper()), slog.Default())
			if err != nil {
				return err
			}
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			token, err := client.CreateLinkToken(cmd.Context(), s.user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	addUserFlag(cmd)
	return cmd
}

func exchangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange <public-token>",
		Short: "Exchange a Plaid Link public token for an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := plaid.NewClient(config.PlaidCredentials(viper.GetViper()), slog.Default())
			if err != nil {
				return err
			}
			access, itemID, err := client.ExchangePublicToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Linked Plaid item "+itemID))
			fmt.Fprintln(out, cli.FormatInfo("Add this to your config as plaid.access_token (or set FINSIGHT_PLAID_ACCESS_TOKEN):"))
			fmt.Fprintln(out, access)
			return nil
		},
	}
}
