package irblaster

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_OnlyReadyTasksRun(t *testing.T) {
	var sched = NewScheduler(testLogger(), false)

	var ran, idle atomic.Int32

	sched.Create("a", 0, 1, func(context.Context) error { ran.Add(1); return nil }).SetReady()
	sched.Create("b", 1, 0, func(context.Context) error { ran.Add(1); return nil }).SetReady()

	var parked = sched.Create("c", 0, 0, func(context.Context) error { idle.Add(1); return nil })

	require.NoError(t, sched.Run(t.Context()))

	assert.Equal(t, int32(2), ran.Load())
	assert.Equal(t, int32(0), idle.Load())
	assert.False(t, parked.Ready())
	assert.Len(t, sched.Tasks(), 3)
}

func TestScheduler_ErrorStopsEveryTask(t *testing.T) {
	var sched = NewScheduler(testLogger(), false)
	var boom = errors.New("boom")

	sched.Create("failing", 0, 0, func(context.Context) error { return boom }).SetReady()
	sched.Create("waiting", 1, 0, func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	}).SetReady()

	assert.ErrorIs(t, sched.Run(t.Context()), boom)
}

func TestScheduler_CancelIsNotAnError(t *testing.T) {
	var sched = NewScheduler(testLogger(), true)

	sched.Create("sleeper", 0, 0, func(ctx context.Context) error {
		return SystemClock{}.Sleep(ctx, time.Hour)
	}).SetReady()

	var ctx, cancel = context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, sched.Run(ctx))
}

func TestVirtualClock(t *testing.T) {
	var start = time.Unix(1000, 0)
	var clk = NewVirtualClock(start)

	require.NoError(t, clk.Sleep(t.Context(), 5*time.Millisecond))
	assert.Equal(t, start.Add(5*time.Millisecond), clk.Now())

	// A deadline in the past does not move time backwards.
	require.NoError(t, clk.SleepUntil(t.Context(), start))
	assert.Equal(t, start.Add(5*time.Millisecond), clk.Now())

	require.NoError(t, clk.SleepUntil(t.Context(), start.Add(time.Second)))
	assert.Equal(t, start.Add(time.Second), clk.Now())

	var ctx, cancel = context.WithCancel(t.Context())
	cancel()

	assert.ErrorIs(t, clk.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, start.Add(time.Second), clk.Now())
}

func TestSystemClock_SleepUntil(t *testing.T) {
	var clk = SystemClock{}
	var deadline = time.Now().Add(2 * time.Millisecond)

	require.NoError(t, clk.SleepUntil(t.Context(), deadline))
	assert.False(t, time.Now().Before(deadline))
}
