// Package worker runs update passes in the background and retries failed passes with an
// exponential backoff.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cperrin88/reposync/internal/logger"
	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/metrics"
	"github.com/cperrin88/reposync/pkg/orchestrator"
)

const (
	// DefaultMaxRetries is how often a failed scheduled pass is retried.
	DefaultMaxRetries = 3
	// DefaultInitialBackoff is the wait before the first retry. It is longer than the
	// orchestrator's minimum pass interval, otherwise the retry would be skipped.
	DefaultInitialBackoff = 30 * time.Second
)

// ErrNoInterval is returned by Run when no schedule interval is configured.
var ErrNoInterval = errors.New("update interval must be positive")

// Passer runs a full update pass.
type Passer interface {
	UpdateRepos(ctx context.Context) (orchestrator.PassResult, error)
}

// Options configure a Worker.
type Options struct {
	// Interval between the starts of two scheduled passes.
	Interval       time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	// Checks, when set, delays the first pass until Interval has passed since the last
	// recorded check.
	Checks orchestrator.CheckStore
	Now    func() time.Time
	// NewBackOff overrides the retry policy; MaxRetries still applies.
	NewBackOff func() backoff.BackOff
}

// Worker schedules update passes.
type Worker struct {
	passer Passer
	opts   Options
}

// New creates a Worker.
func New(p Passer, opts Options) *Worker {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w := &Worker{passer: p, opts: opts}
	if w.opts.NewBackOff == nil {
		w.opts.NewBackOff = w.exponential
	}
	return w
}

func (w *Worker) exponential() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.InitialBackoff
	b.RandomizationFactor = 0.25
	b.Multiplier = 2
	b.MaxInterval = 10 * time.Minute
	b.MaxElapsedTime = 0
	return b
}

// RunOnce runs one pass and retries it while it fails. A pass fails when the repository list
// cannot be read or any repository reports an error. Cancellation stops retrying at once.
func (w *Worker) RunOnce(ctx context.Context) (orchestrator.PassResult, error) {
	var (
		pass    orchestrator.PassResult
		attempt int
	)
	op := func() error {
		attempt++
		var err error
		pass, err = w.passer.UpdateRepos(ctx)
		switch {
		case err != nil && pkgerrors.IsCanceled(err):
			return backoff.Permanent(err)
		case err != nil:
			return err
		default:
			return pass.Err()
		}
	}
	notify := func(err error, next time.Duration) {
		metrics.IncPassRetry()
		logger.Warn("Update pass failed, retrying", logger.Fields{
			"attempt": attempt,
			"backoff": next.String(),
			"error":   err.Error(),
		})
	}

	b := backoff.WithContext(backoff.WithMaxRetries(w.opts.NewBackOff(), uint64(max(w.opts.MaxRetries, 0))), ctx)
	err := backoff.RetryNotify(op, b, notify)
	return pass, err
}

// Run schedules passes every Interval until ctx is done. Failures are logged; Run only
// returns on cancellation or a missing interval.
func (w *Worker) Run(ctx context.Context) error {
	if w.opts.Interval <= 0 {
		return ErrNoInterval
	}

	delay := w.firstDelay(ctx)
	logger.Info("Scheduling update passes", logger.Fields{
		"interval": w.opts.Interval.String(),
		"first":    delay.String(),
	})
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		pass, err := w.RunOnce(ctx)
		switch {
		case err != nil && pkgerrors.IsCanceled(err):
			return nil
		case err != nil:
			logger.Error("Scheduled update pass failed", logger.Fields{"error": err.Error()})
		case pass.Skipped:
			logger.Debug("Scheduled update pass skipped")
		}
		timer.Reset(w.opts.Interval)
	}
}

func (w *Worker) firstDelay(ctx context.Context) time.Duration {
	if w.opts.Checks == nil {
		return 0
	}
	last, err := w.opts.Checks.LastChecked(ctx)
	if err != nil {
		logger.Warn("Could not read last update check", logger.Fields{"error": err.Error()})
		return 0
	}
	if last.IsZero() {
		return 0
	}
	return max(w.opts.Interval-w.opts.Now().Sub(last), 0)
}
