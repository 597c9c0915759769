// Package scheduler runs the periodic jobs: health snapshots, automatic goal
// contributions and an optional spreadsheet export.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/finsight/internal/config"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/robfig/cron/v3"
)

// Jobs is the engine surface the scheduler drives.
type Jobs interface {
	SnapshotAllUsers(ctx context.Context) (int, error)
	RunAutoContributions(ctx context.Context) (int, error)
	Report(ctx context.Context, userID string) (*model.FinancialReport, error)
}

// ReportWriter exports a report.
type ReportWriter interface {
	Write(ctx context.Context, report *model.FinancialReport) error
}

// Scheduler owns a cron runner. Jobs never overlap with themselves and a
// panicking job is logged instead of crashing the process.
type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	writer ReportWriter
	logger *slog.Logger
	cfg    config.Scheduler

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

type job struct {
	name string
	spec string
	run  func(context.Context) error
}

// New registers every job with a non-empty spec. The export job also needs
// a writer.
func New(jobs Jobs, cfg config.Scheduler, writer ReportWriter, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	cronLog := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		)),
		jobs:   jobs,
		writer: writer,
		logger: logger,
		cfg:    cfg,
		ctx:    context.Background(),
	}

	entries := []job{
		{"health_snapshots", cfg.SnapshotSpec, s.RunSnapshots},
		{"auto_contributions", cfg.ContributionSpec, s.RunContributions},
	}
	if writer != nil {
		entries = append(entries, job{"report_export", cfg.ExportSpec, s.RunExport})
	}

	for _, e := range entries {
		if e.spec == "" {
			logger.Info("job disabled", "job", e.name)
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, s.wrap(e.name, e.run)); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", e.spec, e.name, err)
		}
		logger.Info("job scheduled", "job", e.name, "spec", e.spec)
	}
	return s, nil
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		if err := run(ctx); err != nil {
			s.logger.Error("job failed", "job", name, "error", err)
		}
	}
}

// Start begins running jobs. Jobs receive a context that Stop cancels.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// RunSnapshots records a health snapshot for every user.
func (s *Scheduler) RunSnapshots(ctx context.Context) error {
	n, err := s.jobs.SnapshotAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot health scores: %w", err)
	}
	s.logger.Info("health snapshots recorded", "users", n)
	return nil
}

// RunContributions applies due automatic goal contributions.
func (s *Scheduler) RunContributions(ctx context.Context) error {
	n, err := s.jobs.RunAutoContributions(ctx)
	if err != nil {
		return fmt.Errorf("failed to run auto contributions: %w", err)
	}
	s.logger.Info("auto contributions applied", "goals", n)
	return nil
}

// RunExport writes the configured user's report.
func (s *Scheduler) RunExport(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	report, err := s.jobs.Report(ctx, s.cfg.ExportUserID)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := s.writer.Write(ctx, report); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	s.logger.Info("report exported", "user_id", s.cfg.ExportUserID)
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
