package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsPeriodically(t *testing.T) {
	var runs int32
	s := NewScheduler(SchedulerConfig{Name: "test", Interval: 5 * time.Millisecond}, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})

	s.Start()
	s.Start()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, time.Millisecond)
	s.Stop()

	stopped := atomic.LoadInt32(&runs)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&runs))
}

func TestSchedulerRunNow(t *testing.T) {
	boom := errors.New("boom")
	s := NewScheduler(SchedulerConfig{Name: "test", Interval: time.Hour, InitialDelay: -1}, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return boom
	})
	defer s.Stop()

	assert.ErrorIs(t, s.RunNow(), boom)
}

func TestSchedulerStopCancelsRun(t *testing.T) {
	started := make(chan struct{})
	s := NewScheduler(SchedulerConfig{Name: "test", Interval: time.Hour}, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	s.Start()
	<-started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not cancel the running job")
	}
}
