package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
)

// RetryConfig shapes the exponential backoff between encode attempts.
// MaxRetries counts attempts after the first one.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      1.5,
	}
}

// schedule builds a fresh backoff for one run. Only MaxRetries and ctx end
// it; there is no elapsed time limit.
func (c RetryConfig) schedule(ctx context.Context, clk clockwork.Clock) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.InitialInterval
	exp.MaxInterval = c.MaxInterval
	exp.Multiplier = c.Multiplier
	exp.MaxElapsedTime = 0
	exp.Clock = clk
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, c.MaxRetries), ctx)
}

// retrier reruns failing operations, waiting on its clock between attempts.
// backoff.Permanent errors end the run at once.
type retrier struct {
	cfg    RetryConfig
	clock  clockwork.Clock
	logger *slog.Logger
}

func (r retrier) do(ctx context.Context, name string, op func() error) error {
	attempt := 0
	counted := func() error {
		attempt++
		return op()
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("attempt failed, retrying",
			"operation", name,
			"attempt", attempt,
			"error", err,
			"wait", wait.Round(time.Millisecond).String(),
		)
	}
	return backoff.RetryNotifyWithTimer(counted, r.cfg.schedule(ctx, r.clock), notify, &clockTimer{clock: r.clock})
}

// clockTimer adapts a clockwork timer to backoff.Timer.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	t.Stop()
	t.timer = t.clock.NewTimer(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.Chan()
}
