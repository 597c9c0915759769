package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Veraticus/finsight/internal/config"
	"github.com/Veraticus/finsight/internal/engine"
	"github.com/Veraticus/finsight/internal/model"
	"github.com/Veraticus/finsight/internal/sheets"
	"github.com/Veraticus/finsight/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJobs struct {
	snapshots     int
	contributions int
	reports       []string
	err           error
}

func (s *stubJobs) SnapshotAllUsers(context.Context) (int, error) {
	s.snapshots++
	return 3, s.err
}

func (s *stubJobs) RunAutoContributions(context.Context) (int, error) {
	s.contributions++
	return 2, s.err
}

func (s *stubJobs) Report(_ context.Context, userID string) (*model.FinancialReport, error) {
	s.reports = append(s.reports, userID)
	if s.err != nil {
		return nil, s.err
	}
	return &model.FinancialReport{User: model.User{ID: userID}}, nil
}

func TestNewRegistersConfiguredJobs(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Scheduler
		writer  ReportWriter
		entries int
	}{
		{name: "defaults", cfg: config.Scheduler{SnapshotSpec: "0 2 * * *", ContributionSpec: "0 6 * * *"}, entries: 2},
		{name: "export without writer is ignored", cfg: config.Scheduler{SnapshotSpec: "@daily", ExportSpec: "@monthly", ExportUserID: "u1"}, entries: 1},
		{name: "export with writer", cfg: config.Scheduler{ExportSpec: "@monthly", ExportUserID: "u1"}, writer: &sheets.MockWriter{}, entries: 1},
		{name: "all disabled", cfg: config.Scheduler{}, entries: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&stubJobs{}, tt.cfg, tt.writer, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.entries, s.Entries())
		})
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(&stubJobs{}, config.Scheduler{SnapshotSpec: "every tuesday"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health_snapshots")
}

func TestRunJobs(t *testing.T) {
	ctx := context.Background()
	jobs := &stubJobs{}
	writer := &sheets.MockWriter{}
	s, err := New(jobs, config.Scheduler{ExportUserID: "u1"}, writer, nil)
	require.NoError(t, err)

	require.NoError(t, s.RunSnapshots(ctx))
	require.NoError(t, s.RunContributions(ctx))
	require.NoError(t, s.RunExport(ctx))

	assert.Equal(t, 1, jobs.snapshots)
	assert.Equal(t, 1, jobs.contributions)
	assert.Equal(t, []string{"u1"}, jobs.reports)
	require.Equal(t, 1, writer.Calls())
	assert.Equal(t, "u1", writer.Reports[0].User.ID)
}

func TestJobFailuresAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	jobs := &stubJobs{err: errors.New("database is locked")}

	s, err := New(jobs, config.Scheduler{}, nil, logger)
	require.NoError(t, err)

	assert.ErrorContains(t, s.RunSnapshots(context.Background()), "database is locked")

	s.wrap("auto_contributions", s.RunContributions)()
	assert.Contains(t, buf.String(), "job failed")
	assert.Contains(t, buf.String(), "job=auto_contributions")
}

func TestExportWriterFailure(t *testing.T) {
	writer := &sheets.MockWriter{WriteFunc: func(context.Context, *model.FinancialReport) error {
		return errors.New("quota exceeded")
	}}
	s, err := New(&stubJobs{}, config.Scheduler{ExportUserID: "u1"}, writer, nil)
	require.NoError(t, err)

	err = s.RunExport(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to export report")
}

func TestStartStop(t *testing.T) {
	s, err := New(&stubJobs{}, config.Scheduler{SnapshotSpec: "@every 1h"}, nil, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Error(t, s.ctx.Err(), "job context is canceled on stop")
}

func TestSnapshotsWithEngine(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.User("pat@example.com")
	db.User("sam@example.com")

	s, err := New(engine.New(db.Storage), config.Scheduler{}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.RunSnapshots(ctx))

	users, err := db.Storage.ListUsers(ctx)
	require.NoError(t, err)
	for _, u := range users {
		snaps, err := db.Storage.ListHealthScores(ctx, u.ID, 10)
		require.NoError(t, err)
		assert.Len(t, snaps, 1)
	}
}
