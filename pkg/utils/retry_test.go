package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(3, func(int) time.Duration { return 0 }, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	lastErr := errors.New("still down")
	err := Retry(3, func(int) time.Duration { return 0 }, func() error {
		calls++
		return lastErr
	})

	require.Equal(t, lastErr, err)
	require.Equal(t, 3, calls)
}

func TestRetryStopsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Retry(5, func(int) time.Duration { return 0 }, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestLinearBackoff(t *testing.T) {
	backoff := LinearBackoff(time.Second)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 3 * time.Second},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, backoff(tt.attempt))
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := ExponentialBackoff(2 * time.Second)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, backoff(tt.attempt))
	}
}

func TestExponentialBackoffNegativeAttempt(t *testing.T) {
	backoff := ExponentialBackoff(2 * time.Second)
	require.Equal(t, 2*time.Second, backoff(-1))
}
