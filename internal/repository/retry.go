package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"ledger-service/pkg/xerrors"
)

// RetryPolicy bounds how both stores re-run an atomic block after a
// conflict abort. Only conflicts retry; validation and business failures
// are deterministic and propagate on the first attempt.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// DefaultRetryPolicy suits request-path transfers: a handful of quick
// attempts, then give up and let the caller decide.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BackoffBase: 10 * time.Millisecond,
		BackoffCap:  250 * time.Millisecond,
	}
}

// backoffDelay is exponential with full jitter: a random duration in
// [0, min(base<<attempt, cap)).
func (p RetryPolicy) backoffDelay(attempt int) time.Duration {
	d := p.BackoffBase << attempt
	if d <= 0 || d > p.BackoffCap {
		d = p.BackoffCap
	}
	if d <= 0 {
		return 0
	}
	return rand.N(d)
}

// runWithRetry executes attempt until it succeeds, fails with a
// non-conflict error, exhausts the policy, or the context deadline bounds
// the whole sequence.
func runWithRetry(ctx context.Context, p RetryPolicy, log *zap.Logger, attempt func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for i := 0; i < p.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", xerrors.ErrDeadlineExceeded, err)
		}

		err := attempt()
		if err == nil {
			return nil
		}
		if !errors.Is(err, xerrors.ErrTxConflict) {
			return err
		}
		lastErr = err

		delay := p.backoffDelay(i)
		log.Debug("atomic transaction conflict, backing off",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("delay", delay),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", xerrors.ErrDeadlineExceeded, ctx.Err())
		}
	}

	return fmt.Errorf("%w: gave up after %d attempts: %v", xerrors.ErrTxConflict, p.MaxAttempts, lastErr)
}
