package export

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetrier(clk clockwork.Clock) retrier {
	return retrier{
		cfg: RetryConfig{
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     4 * time.Second,
			Multiplier:      2,
		},
		clock:  clk,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRetrierWaitsOnClock(t *testing.T) {
	clk := clockwork.NewFakeClockAt(epoch)
	ctx := waitCtx(t)

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- testRetrier(clk).do(ctx, "flaky", func() error {
			if calls.Add(1) < 3 {
				return errFlaky
			}
			return nil
		})
	}()

	for want := int32(1); want <= 2; want++ {
		require.NoError(t, clk.BlockUntilContext(ctx, 1))
		assert.Equal(t, want, calls.Load())
		clk.Advance(10 * time.Second)
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("retrier did not finish")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetrierPermanent(t *testing.T) {
	clk := clockwork.NewFakeClockAt(epoch)
	calls := 0

	err := testRetrier(clk).do(context.Background(), "broken", func() error {
		calls++
		return backoff.Permanent(errBoom)
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestRetrierStopsOnContext(t *testing.T) {
	clk := clockwork.NewFakeClockAt(epoch)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- testRetrier(clk).do(ctx, "flaky", func() error { return errFlaky })
	}()

	require.NoError(t, clk.BlockUntilContext(waitCtx(t), 1))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("retrier ignored cancellation")
	}
}
