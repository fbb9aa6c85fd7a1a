package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerEvery(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewWithClock(clock)
	defer s.Stop()

	var runs atomic.Int32
	done := make(chan struct{}, 4)
	s.Every(time.Minute, FuncJob(func(ctx context.Context) {
		runs.Add(1)
		done <- struct{}{}
	}))

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
		clock.Advance(time.Minute)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job did not run")
		}
	}
	assert.Equal(t, int32(2), runs.Load())
}

func TestSchedulerOnceAfterCancelled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewWithClock(clock)

	var runs atomic.Int32
	s.OnceAfter(time.Hour, FuncJob(func(ctx context.Context) { runs.Add(1) }))
	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	s.Stop()

	clock.Advance(2 * time.Hour)
	assert.Equal(t, int32(0), runs.Load())
}

func TestCronAdd(t *testing.T) {
	cr := NewCron(time.UTC)
	_, err := cr.Add("@every 1m", "noop", FuncJob(func(ctx context.Context) {}))
	require.NoError(t, err)
	assert.Len(t, cr.Entries(), 1)

	_, err = cr.Add("not a schedule", "bad", FuncJob(func(ctx context.Context) {}))
	assert.Error(t, err)
}
