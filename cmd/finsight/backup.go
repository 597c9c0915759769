package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Veraticus/finsight/internal/cli"
	"github.com/Veraticus/finsight/internal/config"
	"github.com/Veraticus/finsight/internal/storage"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore database backups",
		Long: `Manage copies of the database file. Imports and syncs take an automatic
backup first; the newest automatic backups are kept.`,
	}
	cmd.AddCommand(backupCreateCmd(), backupListCmd(), backupRestoreCmd(), backupDeleteCmd())
	return cmd
}

// openBackups opens the database without migrating it, so an older backup
// can be restored as is.
func openBackups() (*storage.SQLiteStorage, *storage.BackupManager, error) {
	store, err := storage.NewSQLiteStorage(config.ExpandPath(viper.GetString("database.path")))
	if err != nil {
		return nil, nil, err
	}
	backups, err := store.Backups()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, backups, nil
}

func backupCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Back up the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, backups, err := openBackups()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var tag string
			if len(args) == 1 {
				tag = args[0]
			}
			description, _ := cmd.Flags().GetString("description")
			info, err := backups.Create(cmd.Context(), tag, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created backup %s (%s)", info.ID, humanSize(info.FileSize))))
			return nil
		},
	}
	cmd.Flags().StringP("description", "m", "", "note stored with the backup")
	return cmd
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, backups, err := openBackups()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			infos, err := backups.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No backups"))
				return nil
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("ID", "Created", "Size", "Schema", "Rows", "Description").
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return cli.TableHeaderStyle
					}
					return cli.TableCellStyle
				})
			for _, b := range infos {
				id := b.ID
				if b.IsAuto {
					id += " (auto)"
				}
				t.Row(id, b.CreatedAt.Local().Format("2006-01-02 15:04"), humanSize(b.FileSize),
					strconv.Itoa(b.SchemaVersion), rowSummary(b.RowCounts), b.Description)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
}

func backupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, backups, err := openBackups()
			if err != nil {
				return err
			}
			// Restore closes the handle itself.
			defer func() { _ = store.Close() }()

			if err := backups.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Restored backup "+args[0]))
			return nil
		},
	}
}

func backupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, backups, err := openBackups()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := backups.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted backup "+args[0]))
			return nil
		},
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func rowSummary(counts map[string]int) string {
	tables := make([]string, 0, len(counts))
	for name := range counts {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	parts := make([]string, 0, len(tables))
	for _, name := range tables {
		if counts[name] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", name, counts[name]))
		}
	}
	return strings.Join(parts, " ")
}
