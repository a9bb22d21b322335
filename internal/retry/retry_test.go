package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "insert", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Do(context.Background(), "insert", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("deadlock detected")
		}
		return nil
	}, WithBaseDelay(10*time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Two backoffs: base + 2*base.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "create email thread", func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	}, WithBaseDelay(time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "create email thread")
	assert.Contains(t, err.Error(), "3 attempts")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, "insert", func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	}, WithBaseDelay(time.Minute))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	_ = Do(context.Background(), "insert", func(ctx context.Context) error {
		return errors.New("boom")
	}, WithBaseDelay(time.Millisecond), WithOnRetry(func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}))

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDelays_DoublesPerAttempt(t *testing.T) {
	// Production schedule: 1s then 2s before attempts two and three, so a
	// third-attempt success observes at least 3s of cumulative delay.
	delays := Delays(time.Second, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)

	var total time.Duration
	for _, d := range delays {
		total += d
	}
	assert.GreaterOrEqual(t, total, 3*time.Second)
}

func TestDo_CustomMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "insert", func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	}, WithMaxAttempts(5), WithBaseDelay(time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 5, calls)
	assert.Contains(t, err.Error(), "5 attempts")
}
