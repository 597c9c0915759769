package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/finsight/internal/cli"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/ofx"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import accounts and transactions from OFX or QFX (Quicken) files exported
from your bank. Transactions imported before are skipped, so files can be
imported again safely.

Examples:
  # Import single file
  finsight import-ofx ~/Downloads/chase_jan_2024.qfx

  # Import all QFX files in a directory
  finsight import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	addUserFlag(cmd)
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

// expandFiles resolves glob patterns. A pattern with no matches is kept when
// it names an existing file.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no files found to import")
	}
	return files, nil
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), "Import", "finsight import-ofx "+filepath.Join(filepath.Dir(files[0]), "*"))

	slog.Info("Importing OFX files", "file_count", len(files), "dry_run", dryRun)
	if !dryRun {
		autoBackup(ctx, s.store, "import-ofx")
	}

	parser := ofx.NewParser(slog.Default())
	out := cmd.OutOrStdout()
	var total engine.ImportResult

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		batch, err := parseOFXFile(ctx, parser, path)
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
			continue
		}

		if dryRun {
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%s: %d accounts, %d transactions",
				filepath.Base(path), len(batch.Accounts), len(batch.Transactions))))
			continue
		}

		result, err := s.engine.Import(ctx, s.user.ID, batch)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", filepath.Base(path), err)
		}
		slog.Info("Imported file",
			"file", filepath.Base(path),
			"imported", result.Imported,
			"duplicates", result.Duplicates)
		total.Imported += result.Imported
		total.Duplicates += result.Duplicates
		total.AccountsCreated += result.AccountsCreated
		total.AccountsUpdated += result.AccountsUpdated
	}

	if handler.WasInterrupted() {
		return ctx.Err()
	}
	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run complete, nothing was saved"))
		return nil
	}
	fmt.Fprintln(out, cli.RenderImportResult(ofx.Source, total))
	return nil
}

func parseOFXFile(ctx context.Context, parser *ofx.Parser, path string) (engine.ImportBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return engine.ImportBatch{}, err
	}
	defer func() { _ = f.Close() }()

	var size int64 = -1
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	bar := progressbar.DefaultBytes(size, filepath.Base(path))
	reader := progressbar.NewReader(f, bar)
	defer func() { _ = bar.Finish() }()

	return parser.Parse(ctx, &reader)
}
