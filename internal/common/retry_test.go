package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestWithRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("connection reset"), Retryable: true}
	permanent := &RetryableError{Err: errors.New("bad request")}

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{name: "first try", errs: []error{nil}, wantCalls: 1},
		{name: "recovers", errs: []error{transient, transient, nil}, wantCalls: 3},
		{name: "plain errors are retried", errs: []error{errors.New("eof"), nil}, wantCalls: 2},
		{name: "permanent stops at once", errs: []error{permanent}, wantCalls: 1, wantErr: permanent},
		{name: "exhausts attempts", errs: []error{transient, transient, transient}, wantCalls: 3, wantErr: ErrMaxRetries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				err := tt.errs[calls]
				calls++
				return err
			}, fastRetry)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWithRetryCapsRequestedWait(t *testing.T) {
	calls := 0
	start := time.Now()
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &RetryableError{Err: ErrRateLimit, After: time.Hour, Retryable: true}
		}
		return nil
	}, fastRetry)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "After is capped at MaxDelay")
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("flaky")
	}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Minute})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("openai: %w", ErrRateLimit), true},
		{ErrPlaidRateLimit, true},
		{context.DeadlineExceeded, true},
		{&RetryableError{Err: errors.New("503"), Retryable: true}, true},
		{&RetryableError{Err: errors.New("401")}, false},
		{NewValidationError("amount", "must be positive"), false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
