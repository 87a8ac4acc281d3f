package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrRetriesExhausted indicates every allowed attempt failed with a
// retryable error.
var ErrRetriesExhausted = errors.New("export: retry attempts exhausted")

// RetryPolicy retries an operation a bounded number of times when the error
// is classified retryable. It applies only at the export boundary; transform
// stages never retry.
type RetryPolicy struct {
	MaxAttempts int
	Retryable   func(error) bool
	Logger      *slog.Logger
}

// DefaultRetryable treats only a lost connection as retryable.
func DefaultRetryable(err error) bool {
	return errors.Is(err, ErrConnectionLost)
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// context is cancelled, or the attempt budget runs out.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = op(ctx)
		if last == nil {
			return nil
		}
		if !retryable(last) {
			return last
		}
		if p.Logger != nil {
			p.Logger.Warn("retryable export failure",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts),
				slog.Any("error", last))
		}
	}
	return fmt.Errorf("%w: %w", ErrRetriesExhausted, last)
}

// RetryingExporter wraps an exporter with a retry policy.
type RetryingExporter struct {
	Next   Exporter
	Policy RetryPolicy
}

// Export delegates to the wrapped exporter under the retry policy.
func (r RetryingExporter) Export(ctx context.Context, sess *Session, req Request) (string, error) {
	var out string
	err := r.Policy.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.Next.Export(ctx, sess, req)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
