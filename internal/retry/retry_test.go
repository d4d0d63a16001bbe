package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, Multiplier: 2, MaxAttempts: attempts}
}

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(40))
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, time.Second, p.InitialDelay)
	assert.Equal(t, 6, p.MaxAttempts)
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "chat", fastPolicy(5), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("503 unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("connection reset")
	err := Do(context.Background(), "chat", fastPolicy(4), func(context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.True(t, IsExternal(err))
	assert.ErrorIs(t, err, boom)

	var ese *ExternalServiceError
	require.ErrorAs(t, err, &ese)
	assert.Equal(t, 4, ese.Attempts)
	assert.Equal(t, "chat", ese.Op)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	bad := errors.New("400 bad request")
	err := Do(context.Background(), "chat", fastPolicy(6), func(context.Context) error {
		calls++
		return Permanent(bad)
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, bad)
	assert.True(t, IsExternal(err))
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, "lookup", Policy{InitialDelay: time.Hour, MaxAttempts: 3}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("timeout")
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "x", Policy{}, func(context.Context) error {
		calls++
		return errors.New("no")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
