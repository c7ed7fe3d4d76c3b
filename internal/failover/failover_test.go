package failover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmgateway/llmgateway/internal/apperror"
)

func noSleep() func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error { return nil }
}

func TestRunSucceedsOnPrimary(t *testing.T) {
	o := NewOrchestrator(NewRuntimeState())
	o.Sleep = noSleep()

	primary := Attempt{
		Model:     "A:m",
		IsPrimary: true,
		Dispatch: func(ctx context.Context) (any, error) {
			return "ok", nil
		},
	}

	result, used, err := o.Run(context.Background(), primary, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "A:m", used)
}

func TestRunFallsBackToFailoverOnError(t *testing.T) {
	o := NewOrchestrator(NewRuntimeState())
	o.Sleep = noSleep()

	primary := Attempt{
		Model:     "A:m",
		IsPrimary: true,
		Dispatch: func(ctx context.Context) (any, error) {
			return nil, apperror.NewUpstreamHTTPError("A:m", 500, "boom")
		},
	}
	backup := Attempt{
		Model: "B:m2",
		Dispatch: func(ctx context.Context) (any, error) {
			return "backup-ok", nil
		},
	}

	result, used, err := o.Run(context.Background(), primary, []Attempt{backup}, 42)
	require.NoError(t, err)
	assert.Equal(t, "backup-ok", result)
	assert.Equal(t, "B:m2", used)
}

func TestRunActivatesCooldownOnDayLimitError(t *testing.T) {
	state := NewRuntimeState()
	o := NewOrchestrator(state)
	o.Sleep = noSleep()

	calls := 0
	primary := Attempt{
		Model:     "A:m",
		IsPrimary: true,
		Dispatch: func(ctx context.Context) (any, error) {
			calls++
			return nil, apperror.NewUpstreamHTTPError("A:m", 429, "tokens per day limit exceeded")
		},
	}
	backup := Attempt{
		Model: "B:m2",
		Dispatch: func(ctx context.Context) (any, error) {
			return "backup-ok", nil
		},
	}

	_, used, err := o.Run(context.Background(), primary, []Attempt{backup}, 0)
	require.NoError(t, err)
	assert.Equal(t, "B:m2", used)
	assert.Equal(t, 1, calls)

	assert.True(t, state.PrimaryInCooldown(time.Now()))
}

func TestRunAllBackendsFailedAfterMaxCycles(t *testing.T) {
	o := NewOrchestrator(NewRuntimeState())
	o.Sleep = noSleep()

	attempts := 0
	primary := Attempt{
		Model:     "A:m",
		IsPrimary: true,
		Dispatch: func(ctx context.Context) (any, error) {
			attempts++
			return nil, errors.New("some transient failure")
		},
	}
	backup := Attempt{
		Model: "B:m2",
		Dispatch: func(ctx context.Context) (any, error) {
			return nil, errors.New("backup also failing")
		},
	}

	_, _, err := o.Run(context.Background(), primary, []Attempt{backup}, 0)
	require.Error(t, err)

	var allFailed *apperror.AllBackendsFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, maxCycles, attempts)
}

func TestPrimaryInCooldownSkipsPrimary(t *testing.T) {
	state := NewRuntimeState()
	o := NewOrchestrator(state)
	o.Sleep = noSleep()
	state.activateCooldown(time.Now())

	primaryCalled := false
	primary := Attempt{
		Model:     "A:m",
		IsPrimary: true,
		Dispatch: func(ctx context.Context) (any, error) {
			primaryCalled = true
			return "should not be used", nil
		},
	}
	backup := Attempt{
		Model: "B:m2",
		Dispatch: func(ctx context.Context) (any, error) {
			return "backup-ok", nil
		},
	}

	_, used, err := o.Run(context.Background(), primary, []Attempt{backup}, 0)
	require.NoError(t, err)
	assert.False(t, primaryCalled)
	assert.Equal(t, "B:m2", used)
}
