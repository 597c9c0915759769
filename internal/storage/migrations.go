package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial finance schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					email TEXT UNIQUE NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					account_type TEXT NOT NULL,
					balance_cents INTEGER NOT NULL DEFAULT 0,
					credit_limit_cents INTEGER NOT NULL DEFAULT 0,
					institution TEXT NOT NULL DEFAULT '',
					external_id TEXT,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL,
					UNIQUE(user_id, external_id)
				)`,
				`CREATE INDEX idx_accounts_user ON accounts(user_id)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					category_type TEXT NOT NULL,
					parent_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
					created_at DATETIME NOT NULL,
					UNIQUE(user_id, name)
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
					destination_account_id TEXT REFERENCES accounts(id) ON DELETE SET NULL,
					category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
					amount_cents INTEGER NOT NULL,
					transaction_type TEXT NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					merchant TEXT NOT NULL DEFAULT '',
					is_recurring BOOLEAN NOT NULL DEFAULT 0,
					hash TEXT UNIQUE NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, date)`,
				`CREATE INDEX idx_transactions_category ON transactions(category_id)`,

				`CREATE TABLE IF NOT EXISTS budgets (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
					period TEXT NOT NULL,
					total_cents INTEGER NOT NULL,
					start_date DATETIME NOT NULL,
					end_date DATETIME NOT NULL,
					alert_threshold INTEGER NOT NULL DEFAULT 80,
					alert_enabled BOOLEAN NOT NULL DEFAULT 1,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					status TEXT NOT NULL DEFAULT 'active',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_budgets_user ON budgets(user_id)`,

				`CREATE TABLE IF NOT EXISTS budget_allocations (
					id TEXT PRIMARY KEY,
					budget_id TEXT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
					category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					amount_cents INTEGER NOT NULL,
					alert_threshold INTEGER NOT NULL DEFAULT 80,
					UNIQUE(budget_id, category_id)
				)`,

				`CREATE TABLE IF NOT EXISTS goals (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					goal_type TEXT NOT NULL DEFAULT '',
					target_cents INTEGER NOT NULL,
					current_cents INTEGER NOT NULL DEFAULT 0 CHECK (current_cents >= 0),
					target_date DATETIME NOT NULL,
					status TEXT NOT NULL DEFAULT 'active',
					is_active BOOLEAN NOT NULL DEFAULT 1,
					auto_contribute BOOLEAN NOT NULL DEFAULT 0,
					contribution_cents INTEGER NOT NULL DEFAULT 0,
					contribution_frequency TEXT NOT NULL DEFAULT '',
					last_auto_contribution_at DATETIME,
					completed_at DATETIME,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_goals_user ON goals(user_id)`,

				`CREATE TABLE IF NOT EXISTS goal_contributions (
					id TEXT PRIMARY KEY,
					goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
					amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
					description TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL DEFAULT 'manual',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_goal_contributions_goal ON goal_contributions(goal_id)`,

				`CREATE TABLE IF NOT EXISTS goal_milestones (
					id TEXT PRIMARY KEY,
					goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					target_percentage TEXT NOT NULL,
					is_achieved BOOLEAN NOT NULL DEFAULT 0,
					achieved_at DATETIME
				)`,
				`CREATE INDEX idx_goal_milestones_goal ON goal_milestones(goal_id)`,

				`CREATE TABLE IF NOT EXISTS health_scores (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					overall_score INTEGER NOT NULL,
					grade TEXT NOT NULL,
					savings_rate_score INTEGER NOT NULL,
					debt_to_income_score INTEGER NOT NULL,
					budget_adherence_score INTEGER NOT NULL,
					credit_utilization_score INTEGER NOT NULL,
					emergency_fund_score INTEGER NOT NULL,
					investment_diversity_score INTEGER NOT NULL,
					savings_rate REAL NOT NULL,
					debt_to_income_ratio REAL NOT NULL,
					budget_variance REAL NOT NULL,
					credit_utilization REAL NOT NULL,
					emergency_fund_months REAL NOT NULL,
					calculation_data TEXT NOT NULL,
					degraded BOOLEAN NOT NULL DEFAULT 0,
					calculated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_health_scores_user ON health_scores(user_id, calculated_at)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add learning progress, streaks and achievements",
		Up: func(tx *sql.Tx) error {
			if err := execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS courses (
					id TEXT PRIMARY KEY,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					difficulty TEXT NOT NULL DEFAULT '',
					is_published BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS lessons (
					id TEXT PRIMARY KEY,
					course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
					title TEXT NOT NULL,
					position INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_lessons_course ON lessons(course_id)`,
				`CREATE TABLE IF NOT EXISTS course_progress (
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
					status TEXT NOT NULL DEFAULT 'not_started',
					completed_lessons INTEGER NOT NULL DEFAULT 0,
					completion_percentage REAL NOT NULL DEFAULT 0,
					started_at DATETIME,
					completed_at DATETIME,
					updated_at DATETIME NOT NULL,
					PRIMARY KEY (user_id, course_id)
				)`,
				`CREATE TABLE IF NOT EXISTS lesson_completions (
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
					lesson_id TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
					completed_at DATETIME NOT NULL,
					PRIMARY KEY (user_id, lesson_id)
				)`,
				`CREATE TABLE IF NOT EXISTS learning_streaks (
					user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
					current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
					longest_streak INTEGER NOT NULL DEFAULT 0,
					last_activity_date DATETIME
				)`,
				`CREATE TABLE IF NOT EXISTS achievements (
					id TEXT PRIMARY KEY,
					code TEXT UNIQUE NOT NULL,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					achievement_type TEXT NOT NULL,
					points INTEGER NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT 1
				)`,
				`CREATE TABLE IF NOT EXISTS user_achievements (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					achievement_id TEXT NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
					points_earned INTEGER NOT NULL DEFAULT 0,
					earned_at DATETIME NOT NULL,
					UNIQUE(user_id, achievement_id)
				)`,
			}); err != nil {
				return err
			}

			seed := []struct {
				id, code, title, description, kind string
				points                             int
			}{
				{"ach-first-lesson", "first_lesson", "First Steps", "Complete your first lesson", "milestone", 10},
				{"ach-course-completion", "course_completion", "Course Graduate", "Complete a course", "completion", 50},
				{"ach-week-streak", "week_streak", "Week Warrior", "Learn seven days in a row", "streak", 25},
				{"ach-month-streak", "month_streak", "Monthly Master", "Learn thirty days in a row", "streak", 100},
			}
			for _, a := range seed {
				if _, err := tx.Exec(`
					INSERT OR IGNORE INTO achievements (id, code, title, description, achievement_type, points, is_active)
					VALUES (?, ?, ?, ?, ?, ?, 1)`,
					a.id, a.code, a.title, a.description, a.kind, a.points); err != nil {
					return fmt.Errorf("failed to seed achievement %s: %w", a.code, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add notifications and budget alert tracking",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS notifications (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					event_type TEXT NOT NULL,
					entity_id TEXT NOT NULL DEFAULT '',
					message TEXT NOT NULL,
					is_read BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_notifications_user ON notifications(user_id, is_read)`,
				`ALTER TABLE budgets ADD COLUMN alert_sent BOOLEAN NOT NULL DEFAULT 0`,
			})
		},
	},
	{
		Version:     4,
		Description: "Add assistant conversations and goal templates",
		Up: func(tx *sql.Tx) error {
			if err := execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS ai_conversations (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					title TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_ai_conversations_user ON ai_conversations(user_id, updated_at)`,
				`CREATE TABLE IF NOT EXISTS ai_messages (
					id TEXT PRIMARY KEY,
					conversation_id TEXT NOT NULL REFERENCES ai_conversations(id) ON DELETE CASCADE,
					role TEXT NOT NULL,
					content TEXT NOT NULL,
					seq INTEGER NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_ai_messages_conversation ON ai_messages(conversation_id, seq)`,
				`CREATE TABLE IF NOT EXISTS goal_templates (
					id TEXT PRIMARY KEY,
					user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					goal_type TEXT NOT NULL DEFAULT 'savings',
					default_target_cents INTEGER NOT NULL CHECK (default_target_cents > 0),
					suggested_duration_days INTEGER NOT NULL DEFAULT 365 CHECK (suggested_duration_days > 0),
					icon TEXT NOT NULL DEFAULT '',
					is_system_template BOOLEAN NOT NULL DEFAULT 0,
					usage_count INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
			}); err != nil {
				return err
			}

			seed := []struct {
				id, name, description, goalType, icon string
				targetCents                           int64
				days                                  int
			}{
				{"tpl-emergency-fund", "Emergency Fund", "Three to six months of expenses set aside", "emergency_fund", "shield", 1000000, 365},
				{"tpl-vacation", "Vacation", "Save ahead for a trip", "savings", "plane", 300000, 180},
				{"tpl-home-down-payment", "Home Down Payment", "A down payment on a first home", "savings", "home", 4000000, 1095},
				{"tpl-debt-payoff", "Debt Payoff", "Clear a credit card or loan balance", "debt_payoff", "credit-card", 500000, 365},
				{"tpl-new-car", "New Car", "Buy a car without financing", "savings", "car", 1500000, 730},
			}
			for _, t := range seed {
				if _, err := tx.Exec(`
					INSERT OR IGNORE INTO goal_templates (id, name, description, goal_type, default_target_cents,
						suggested_duration_days, icon, is_system_template, usage_count, created_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, 1, 0, ?)`,
					t.id, t.name, t.description, t.goalType, t.targetCents, t.days, t.icon, nowUTC()); err != nil {
					return fmt.Errorf("failed to seed goal template %s: %w", t.id, err)
				}
			}
			return nil
		},
	},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the schema version recorded in the database file.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
