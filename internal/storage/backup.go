package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MaxAutoBackups is how many automatic backups are kept.
const MaxAutoBackups = 5

// Backup errors.
var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupExists    = errors.New("backup already exists")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrInvalidBackupID = errors.New("invalid backup id")
)

// BackupInfo describes a stored backup. It is also the on-disk metadata.
type BackupInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// BackupManager copies the database file into a backups directory.
type BackupManager struct {
	db     *sql.DB
	dbPath string
	dir    string
}

// Backups returns a manager for this storage's database file.
func (s *SQLiteStorage) Backups() (*BackupManager, error) {
	if s.dbPath == ":memory:" {
		return nil, errors.New("in-memory databases cannot be backed up")
	}
	dbPath, err := filepath.Abs(s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	dir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}
	return &BackupManager{db: s.db, dbPath: dbPath, dir: dir}, nil
}

// Create writes a new backup. An empty tag gets a timestamped name.
func (m *BackupManager) Create(ctx context.Context, tag, description string) (*BackupInfo, error) {
	return m.create(ctx, tag, description, false)
}

// Auto takes an automatic backup before an operation and prunes old ones.
func (m *BackupManager) Auto(ctx context.Context, operation string) (*BackupInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", operation, time.Now().Format("2006-01-02-150405"))
	info, err := m.create(ctx, tag, "Automatic backup before "+operation, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create automatic backup: %w", err)
	}
	if err := m.pruneAuto(ctx); err != nil {
		slog.Warn("failed to prune automatic backups", "error", err)
	}
	return info, nil
}

func (m *BackupManager) create(ctx context.Context, tag, description string, auto bool) (*BackupInfo, error) {
	if tag == "" {
		tag = "backup-" + time.Now().Format("2006-01-02-150405")
	}
	if err := validateBackupID(tag); err != nil {
		return nil, err
	}

	dbFile := m.dataPath(tag)
	if _, err := os.Stat(dbFile); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupExists, tag)
	}

	var version int
	if err := m.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	counts := m.rowCounts(ctx)

	if err := m.snapshot(ctx, dbFile); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}
	stat, err := os.Stat(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	info := BackupInfo{
		ID:            tag,
		CreatedAt:     time.Now().UTC(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: version,
		IsAuto:        auto,
	}
	if err := writeJSONAtomic(m.metaPath(tag), info); err != nil {
		if rmErr := os.Remove(dbFile); rmErr != nil {
			slog.Error("failed to remove backup after metadata failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save backup metadata: %w", err)
	}
	return &info, nil
}

// List returns every readable backup, newest first.
func (m *BackupManager) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := readBackupInfo(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			slog.Debug("skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, *info)
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Restore replaces the database file with a backup. The manager's
// database handle is closed; callers must reopen storage afterwards.
func (m *BackupManager) Restore(_ context.Context, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}
	src := m.dataPath(id)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}
	if err := checkIntegrity(src); err != nil {
		return fmt.Errorf("%w: %w", ErrBackupCorrupted, err)
	}

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	previous := m.dbPath + ".pre-restore"
	if err := copyFileAtomic(m.dbPath, previous); err != nil {
		return fmt.Errorf("failed to save current database: %w", err)
	}
	if err := copyFileAtomic(src, m.dbPath); err != nil {
		if rbErr := copyFileAtomic(previous, m.dbPath); rbErr != nil {
			slog.Error("failed to put back database after restore failure", "error", rbErr)
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove stale journal file", "file", m.dbPath+suffix, "error", err)
		}
	}
	if err := os.Remove(previous); err != nil {
		slog.Warn("failed to remove pre-restore copy", "error", err)
	}
	return nil
}

// Delete removes a backup and its metadata.
func (m *BackupManager) Delete(_ context.Context, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}
	if err := os.Remove(m.dataPath(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
		}
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	if err := os.Remove(m.metaPath(id)); err != nil && !os.IsNotExist(err) {
		slog.Debug("failed to remove backup metadata", "id", id, "error", err)
	}
	return nil
}

func (m *BackupManager) pruneAuto(ctx context.Context) error {
	backups, err := m.List(ctx)
	if err != nil {
		return err
	}
	kept := 0
	for _, b := range backups {
		if !b.IsAuto {
			continue
		}
		kept++
		if kept > MaxAutoBackups {
			if err := m.Delete(ctx, b.ID); err != nil {
				slog.Debug("failed to delete old automatic backup", "id", b.ID, "error", err)
			}
		}
	}
	return nil
}

func (m *BackupManager) rowCounts(ctx context.Context) map[string]int {
	tables := map[string]string{
		"accounts":     "SELECT COUNT(*) FROM accounts",
		"transactions": "SELECT COUNT(*) FROM transactions",
		"categories":   "SELECT COUNT(*) FROM categories",
		"budgets":      "SELECT COUNT(*) FROM budgets",
		"goals":        "SELECT COUNT(*) FROM goals",
		"health":       "SELECT COUNT(*) FROM health_scores",
	}
	counts := make(map[string]int, len(tables))
	for name, query := range tables {
		var n int
		if err := m.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			continue
		}
		counts[name] = n
	}
	return counts
}

func (m *BackupManager) snapshot(ctx context.Context, dest string) error {
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	if strings.ContainsAny(dest, `'";`) {
		return fmt.Errorf("backup path %q contains forbidden characters", dest)
	}
	// #nosec G201 - dest is built from the validated backup id
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		slog.Debug("VACUUM INTO failed, copying file instead", "error", err)
		return copyFileAtomic(m.dbPath, dest)
	}
	return nil
}

func (m *BackupManager) dataPath(id string) string { return filepath.Join(m.dir, id+".db") }
func (m *BackupManager) metaPath(id string) string { return filepath.Join(m.dir, id+".meta.json") }

func validateBackupID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\'";`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidBackupID, id)
	}
	return nil
}

func checkIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

func readBackupInfo(path string) (*BackupInfo, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var info BackupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func copyFileAtomic(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.Create(filepath.Clean(tmp))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
