package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floatwatch/internal/eventbus"
	"floatwatch/pkg/logx"
)

func TestFirstRunScheduleImmediate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := intervalSchedule(time.Minute, TaskOptions{Immediate: true}, now)

	later := now.Add(2 * time.Second)
	assert.Equal(t, later, s.Next(later), "first activation should be immediate")
	assert.Equal(t, later.Add(time.Minute), s.Next(later), "then every period")
}

func TestFirstRunScheduleSpread(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	first := intervalSchedule(time.Minute, TaskOptions{Spread: true}, now).Next(now)
	assert.False(t, first.Before(now.Add(time.Minute)))
	assert.True(t, first.Before(now.Add(time.Minute+maxStartupSpread)))
}

func TestIntervalScheduleDefault(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := intervalSchedule(time.Minute, TaskOptions{}, now)
	_, isFirst := s.(*firstRunSchedule)
	assert.False(t, isFirst)
	assert.Equal(t, now.Add(time.Minute), s.Next(now))
}

func TestCronLoggerCountsSkips(t *testing.T) {
	t.Parallel()

	var skipped int
	l := cronLogger{log: logx.Nop(), onSkip: func() { skipped++ }}
	l.Info("skip")
	l.Info("start", "entry", 1)
	assert.Equal(t, 1, skipped)
}

func TestSkipIfStillRunningChain(t *testing.T) {
	t.Parallel()

	var skipped atomic.Int32
	l := cronLogger{log: logx.Nop(), onSkip: func() { skipped.Add(1) }}
	release := make(chan struct{})
	started := make(chan struct{})
	job := cron.NewChain(cron.SkipIfStillRunning(l)).Then(cron.FuncJob(func() {
		close(started)
		<-release
	}))

	go job.Run()
	<-started
	job.Run() // overlaps: skipped
	close(release)
	assert.Equal(t, int32(1), skipped.Load())
}

func TestAddIntervalRunsImmediatelyWithTimeout(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	failed, unsub := bus.Subscribe(4, EventTaskFailed)
	defer unsub()

	s := New(Config{}, logx.Nop(), bus)
	ran := make(chan bool, 1)
	require.NoError(t, s.AddInterval("poll", time.Hour, TaskOptions{Immediate: true, Timeout: 20 * time.Millisecond}, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		<-ctx.Done()
		ran <- hasDeadline
		return errors.New("slow")
	}))
	s.Start(context.Background())
	defer s.Stop(context.Background())

	select {
	case hasDeadline := <-ran:
		assert.True(t, hasDeadline)
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	select {
	case e := <-failed:
		assert.Equal(t, "poll", e.Data.(map[string]any)["task"])
	case <-time.After(time.Second):
		t.Fatal("no failure event")
	}

	snap := s.Snapshot()
	require.Len(t, snap.Schedules, 1)
	assert.True(t, snap.Running)
	assert.Equal(t, uint64(1), snap.Schedules[0].Runs)
	assert.Equal(t, uint64(1), snap.Schedules[0].Failures)
	assert.Equal(t, "slow", snap.Schedules[0].LastErr)
}

func TestStopCancelsRunningJob(t *testing.T) {
	t.Parallel()

	s := New(Config{}, logx.Nop(), nil)
	started := make(chan struct{})
	canceled := make(chan struct{})
	require.NoError(t, s.AddInterval("poll", time.Hour, TaskOptions{Immediate: true}, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	}))
	s.Start(context.Background())
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	select {
	case <-canceled:
	default:
		t.Fatal("job context was not canceled by Stop")
	}
	assert.False(t, s.Snapshot().Running)
}

func TestAddValidationAndRemove(t *testing.T) {
	t.Parallel()

	s := New(Config{}, logx.Logger{}, nil)
	noop := func(context.Context) error { return nil }

	assert.ErrorIs(t, s.AddInterval(" ", time.Second, TaskOptions{}, noop), ErrNameRequired)
	assert.Error(t, s.AddInterval("x", 0, TaskOptions{}, noop))
	assert.Error(t, s.AddCron("x", "not a spec", TaskOptions{}, noop))

	require.NoError(t, s.AddCron("daily", "@daily", TaskOptions{}, noop))
	require.NoError(t, s.AddInterval("daily", time.Minute, TaskOptions{}, noop))
	snap := s.Snapshot()
	require.Len(t, snap.Schedules, 1)
	assert.Equal(t, "@every 1m0s", snap.Schedules[0].Spec)

	assert.True(t, s.Remove("daily"))
	assert.False(t, s.Remove("daily"))
}
