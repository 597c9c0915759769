package main

import (
	"fmt"

	"github.com/Veraticus/finsight/internal/cli"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/spf13/cobra"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(userAddCmd())
	cmd.AddCommand(userListCmd())
	return cmd
}

func userAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			name, _ := cmd.Flags().GetString("name")
			user := &model.User{Email: args[0], Name: name}
			if err := store.CreateUser(ctx, user); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created user %s (%s)", user.Email, user.ID)))
			return nil
		},
	}
	cmd.Flags().String("name", "", "display name")
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			users, err := store.ListUsers(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No users"))
				return nil
			}
			for _, u := range users {
				fmt.Fprintf(out, "%s  %-30s %s\n", u.ID, u.Email, u.Name)
			}
			return nil
		},
	}
}
