package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/finsight/internal/api"
	"github.com/Veraticus/finsight/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		Long: `Issue a signed bearer token for the REST API.

The token is signed with auth.jwt_secret and expires after auth.token_ttl
unless --ttl is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := config.LoadServerConfig(viper.GetViper())
			if err != nil {
				return err
			}
			s, err := openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl == 0 {
				ttl = srv.TokenTTL
			}
			token, err := api.IssueToken([]byte(srv.JWTSecret), s.user.ID, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	addUserFlag(cmd)
	cmd.Flags().Duration("ttl", 0, "token lifetime (default: auth.token_ttl)")
	return cmd
}
