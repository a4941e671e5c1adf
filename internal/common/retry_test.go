package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardsage/cardsage/internal/service"
)

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name          string
		operation     func(calls *int) error
		wantErr       error
		wantCalls     int
		wantSucceeded bool
	}{
		{
			name: "succeeds first attempt",
			operation: func(calls *int) error {
				*calls++
				return nil
			},
			wantCalls:     1,
			wantSucceeded: true,
		},
		{
			name: "succeeds after transient failures",
			operation: func(calls *int) error {
				*calls++
				if *calls < 3 {
					return &RetryableError{Err: errors.New("transient"), Retryable: true}
				}
				return nil
			},
			wantCalls:     3,
			wantSucceeded: true,
		},
		{
			name: "stops immediately on non-retryable error",
			operation: func(calls *int) error {
				*calls++
				return &RetryableError{Err: errors.New("permanent"), Retryable: false}
			},
			wantCalls: 1,
		},
		{
			name: "exhausts attempts",
			operation: func(calls *int) error {
				*calls++
				return &RetryableError{Err: errors.New("always failing"), Retryable: true}
			},
			wantErr:   ErrMaxRetries,
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				return tt.operation(&calls)
			}, service.RetryOptions{
				MaxAttempts:  3,
				InitialDelay: time.Millisecond,
				MaxDelay:     5 * time.Millisecond,
				Multiplier:   2.0,
			})

			if tt.wantSucceeded {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestWithRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return &RetryableError{Err: errors.New("transient"), Retryable: true}
	}, service.RetryOptions{
		MaxAttempts:  5,
		InitialDelay: 50 * time.Millisecond,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: false}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestErrorKinds(t *testing.T) {
	wrapped := NewUserError("could not parse request", ErrFatalInput)

	assert.True(t, IsFatalInput(wrapped))
	assert.False(t, IsCollaborator(wrapped))
	assert.False(t, IsValidation(wrapped))

	var userErr *UserError
	require.ErrorAs(t, wrapped, &userErr)
	assert.Equal(t, "could not parse request", userErr.UserMessage)
}
