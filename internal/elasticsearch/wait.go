package elasticsearch

import (
	"context"
	"log/slog"
	"time"
)

const (
	maxWaitAttempts = 10
	maxWaitBackoff  = 30 * time.Second
)

// WaitFor calls check until it succeeds, doubling delay up to 30s between
// attempts. It gives up after ten attempts with the last error, or early when
// ctx is canceled.
func WaitFor(ctx context.Context, log *slog.Logger, what string, check func(context.Context) error, delay time.Duration) error {
	var err error
	for attempt := 1; attempt <= maxWaitAttempts; attempt++ {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = check(checkCtx)
		cancel()
		if err == nil {
			return nil
		}

		log.Warn("elasticsearch not ready, retrying",
			slog.String("check", what),
			slog.Any("err", err),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxWaitAttempts),
			slog.Duration("retry_in", delay),
		)

		if attempt == maxWaitAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, maxWaitBackoff)
	}
	return err
}
