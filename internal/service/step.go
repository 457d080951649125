package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/metrics"
	"github.com/flexprice/reconciler/internal/sentry"
	"github.com/sourcegraph/conc/panics"
)

// stepRunner executes best-effort side effects. Each step is its own error
// boundary: a failure or panic is logged, reported and counted, and the
// caller decides whether the next step still runs.
type stepRunner struct {
	logger *logger.Logger
	sentry *sentry.Service
}

func newStepRunner(params ServiceParams) *stepRunner {
	return &stepRunner{logger: params.Logger, sentry: params.Sentry}
}

// Run executes fn and returns its error after reporting it
func (r *stepRunner) Run(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = fn(ctx) })
	if rec := pc.Recovered(); rec != nil {
		err = ierr.WithError(rec.AsError()).
			WithHintf("Step %s panicked", step).
			WithReportableDetails(map[string]any{"step": step}).
			Mark(ierr.ErrSystem)
	}
	if err == nil {
		return nil
	}

	metrics.BranchFailuresTotal.WithLabelValues(step).Inc()
	r.logger.WithContext(ctx).Errorw("step failed",
		"step", step,
		"error", err,
	)
	r.sentry.CaptureException(ctx, err, map[string]string{"step": step})
	return err
}

// refetchAttempts bounds how often a lost insert re-reads the winning row
const refetchAttempts = 4

func refetchBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, refetchAttempts), ctx)
}

// ensure is look-up-then-insert with a unique constraint behind it. When the
// insert loses to a concurrent writer the winner is re-read and returned, so
// every caller converges on the first committed row.
func ensure[T any](
	ctx context.Context,
	entity string,
	lookup func(ctx context.Context) (T, error),
	insert func(ctx context.Context) (T, error),
) (T, bool, error) {
	var zero T

	existing, err := lookup(ctx)
	if err == nil {
		return existing, false, nil
	}
	if !ierr.IsNotFound(err) {
		return zero, false, err
	}

	created, err := insert(ctx)
	if err == nil {
		return created, true, nil
	}
	if !ierr.IsAlreadyExists(err) {
		return zero, false, err
	}

	metrics.DuplicateWritesTotal.WithLabelValues(entity).Inc()
	winner, err := backoff.RetryWithData(func() (T, error) {
		v, err := lookup(ctx)
		if err != nil && !ierr.IsNotFound(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, refetchBackOff(ctx))
	if err != nil {
		return zero, false, ierr.WithError(err).
			WithHintf("Failed to re-read %s after a concurrent insert", entity).
			Mark(ierr.ErrDatabase)
	}
	return winner, false, nil
}
