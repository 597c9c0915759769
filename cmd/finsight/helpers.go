package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/config"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/llm"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/notify"
	"github.com/Veraticus/finsight/internal/pattern"
	"github.com/Veraticus/finsight/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// openStore opens the configured database and brings its schema up to date.
func openStore(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// loadAssistant builds the AI assistant, or returns nil when no provider is
// configured.
func loadAssistant() (*llm.Assistant, error) {
	cfg, err := config.LoadLLMConfig(viper.GetViper())
	if errors.Is(err, common.ErrMissingConfig) {
		slog.Debug("AI assistant disabled", "reason", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return llm.New(cfg, slog.Default())
}

// newCategorizer combines the configured rules with the assistant. It
// returns nil when neither is available.
func newCategorizer(assistant *llm.Assistant) (engine.Categorizer, error) {
	rules, err := config.LoadCategorizeRules(viper.GetViper())
	if err != nil {
		return nil, err
	}
	var fallback engine.Categorizer
	if assistant != nil {
		fallback = assistant
	}
	if len(rules) == 0 {
		return fallback, nil
	}
	return pattern.New(rules, fallback, slog.Default())
}

// newEngine wires the engine with logged and stored notifications and, when
// available, categorization rules backed by the assistant.
func newEngine(store *storage.SQLiteStorage, assistant *llm.Assistant) (*engine.Engine, error) {
	categorizer, err := newCategorizer(assistant)
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{
		engine.WithLogger(slog.Default()),
		engine.WithNotifier(notify.Multi{
			notify.NewLogNotifier(slog.Default()),
			notify.NewStoreNotifier(store),
		}),
	}
	if categorizer != nil {
		opts = append(opts, engine.WithCategorizer(categorizer))
	}
	return engine.New(store, opts...), nil
}

// session is what most commands need: a store, an engine and the acting user.
type session struct {
	store  *storage.SQLiteStorage
	engine *engine.Engine
	user   *model.User
}

func (s *session) Close() {
	_ = s.store.Close()
}

func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("user", "u", "", "user email or id (default: the only user)")
}

// openSession opens the store and resolves the --user flag.
func openSession(cmd *cobra.Command, withAssistant bool) (*session, error) {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	var assistant *llm.Assistant
	if withAssistant {
		if assistant, err = loadAssistant(); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	ref, _ := cmd.Flags().GetString("user")
	user, err := resolveUser(ctx, store, ref)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	eng, err := newEngine(store, assistant)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &session{store: store, engine: eng, user: user}, nil
}

// resolveUser finds a user by email or id. An empty reference selects the
// only user when there is exactly one.
func resolveUser(ctx context.Context, store *storage.SQLiteStorage, ref string) (*model.User, error) {
	if ref == "" {
		users, err := store.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		switch len(users) {
		case 0:
			return nil, common.NewUserError("no users yet, create one with: finsight user add <email>", common.ErrNotFound)
		case 1:
			return &users[0], nil
		default:
			return nil, common.NewUserError("several users exist, pick one with --user", common.ErrValidation)
		}
	}
	if strings.Contains(ref, "@") {
		return store.GetUserByEmail(ctx, ref)
	}
	return store.GetUser(ctx, ref)
}

// autoBackup snapshots the database before a bulk write. A failed backup is
// logged and the operation goes ahead.
func autoBackup(ctx context.Context, store *storage.SQLiteStorage, operation string) {
	backups, err := store.Backups()
	if err != nil {
		slog.Warn("Backups unavailable", "error", err)
		return
	}
	info, err := backups.Auto(ctx, operation)
	if err != nil {
		slog.Warn("Automatic backup failed", "operation", operation, "error", err)
		return
	}
	slog.Debug("Created automatic backup", "id", info.ID, "operation", operation)
}

// parseDate accepts YYYY-MM-DD.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, common.NewValidationError(field, "must be YYYY-MM-DD")
	}
	return t, nil
}
