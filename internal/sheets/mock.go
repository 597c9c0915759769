package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/finsight/internal/model"
)

// MockWriter records exported reports for tests.
type MockWriter struct {
	WriteFunc func(ctx context.Context, report *model.FinancialReport) error
	Reports   []*model.FinancialReport
	mu        sync.Mutex
}

// Write records report and returns WriteFunc's result.
func (m *MockWriter) Write(ctx context.Context, report *model.FinancialReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Reports = append(m.Reports, report)
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, report)
	}
	return nil
}

// Calls returns the number of Write calls.
func (m *MockWriter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reports)
}
