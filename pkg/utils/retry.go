package utils

import (
	"log/slog"
	"time"
)

// Backoff maps an attempt number (0-based) to the delay before the next try.
type Backoff func(attempt int) time.Duration

func LinearBackoff(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt+1)
	}
}

func ExponentialBackoff(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		return base << attempt
	}
}

// Retry runs fn up to attempts times, sleeping per backoff between tries.
// It returns nil on the first success, otherwise the last error.
func Retry(attempts int, backoff Backoff, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		slog.Info("retrying after error", "attempt", i+1, "error", err.Error())
		if i < attempts-1 {
			time.Sleep(backoff(i))
		}
	}
	return err
}
