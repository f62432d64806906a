package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATEs that are safe to retry as a whole transaction
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// ExponentialBackoffStrategy re-runs an operation after failures that are
// known to have left no trace, doubling the wait each time up to maxDelay
type ExponentialBackoffStrategy struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewExponentialBackoffStrategy creates a new ExponentialBackoffStrategy
func NewExponentialBackoffStrategy(maxRetries int, initialDelay, maxDelay time.Duration) *ExponentialBackoffStrategy {
	return &ExponentialBackoffStrategy{
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

// Execute runs operation, retrying while it fails with a recoverable error
func (s *ExponentialBackoffStrategy) Execute(ctx context.Context, operation Operation) error {
	delay := s.initialDelay
	attempts := s.maxRetries + 1

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 1 {
				slog.Info("Operation succeeded after retry", "attempt", attempt, "max_attempts", attempts)
			}
			return nil
		}

		if !isRecoverableError(err) {
			var p *permanentError
			if errors.As(err, &p) {
				return p.err
			}
			slog.Error("Non-recoverable error, failing immediately", "error", err, "attempt", attempt)
			return err
		}

		if attempt >= attempts {
			return fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
		}

		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"retry_in", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-timer.C:
		}

		delay = min(delay*2, s.maxDelay)
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Execute returns the wrapped err.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Name returns the strategy name
func (s *ExponentialBackoffStrategy) Name() string {
	return "ExponentialBackoff"
}

// isRecoverableError reports whether err guarantees the failed attempt
// committed nothing. Timeouts and dropped connections mid-request are not
// recoverable: the commit may have landed.
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}

	// Lock conflicts abort the transaction, even when wrapped by a refusal
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}

	var p *permanentError
	if errors.As(err, &p) {
		return false
	}

	// pgx knows when nothing was sent to the server
	if pgconn.SafeToRetry(err) {
		return true
	}

	// No connection, no transaction
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
