package cli

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled")
	}
}

func TestNewInterruptHandler(t *testing.T) {
	h := NewInterruptHandler(nil)
	assert.NotNil(t, h.writer)
	assert.False(t, h.WasInterrupted())
}

func TestHandleInterrupts(t *testing.T) {
	tests := []struct {
		name        string
		resumeHint  string
		expected    []string
		notExpected []string
	}{
		{
			name:       "with resume hint",
			resumeHint: "finsight sync",
			expected:   []string{"Sync interrupted!", "Resume with: finsight sync"},
		},
		{
			name:        "without resume hint",
			expected:    []string{"Sync interrupted!"},
			notExpected: []string{"Resume with"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &syncBuffer{}
			h := NewInterruptHandler(output)
			ctx := h.HandleInterrupts(context.Background(), "Sync", tt.resumeHint)

			select {
			case <-ctx.Done():
				t.Fatal("context canceled before any interrupt")
			default:
			}

			h.signals <- os.Interrupt
			waitDone(t, ctx)

			require.Eventually(t, h.WasInterrupted, time.Second, 10*time.Millisecond)
			out := output.String()
			for _, s := range tt.expected {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notExpected {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestParentCancelIsNotAnInterrupt(t *testing.T) {
	output := &syncBuffer{}
	h := NewInterruptHandler(output)

	parent, cancel := context.WithCancel(context.Background())
	ctx := h.HandleInterrupts(parent, "Import", "")
	cancel()
	waitDone(t, ctx)

	assert.False(t, h.WasInterrupted())
	assert.Empty(t, output.String())
}
