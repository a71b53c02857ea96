package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/logging"
)

func TestScheduleRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, logging.Discard())
	assert.Error(t, s.Schedule("bad", "not a cron", func(context.Context) {}))
	assert.Error(t, s.Schedule("nil", "* * * * *", nil))
	assert.NoError(t, s.Schedule("ok", "0 8 * * 1-5", func(context.Context) {}))
}

func TestSchedulerRunsJobs(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, logging.Discard())
	var runs atomic.Int32
	require.NoError(t, s.Schedule("tick", "@every 1s", func(context.Context) {
		runs.Add(1)
	}))
	require.NoError(t, s.Schedule("panics", "@every 1s", func(context.Context) {
		panic("boom")
	}))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
