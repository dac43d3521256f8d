package poller_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/poller"
)

func newPoller(fetch poller.FetchFunc) *poller.Poller {
	return poller.New(fetch,
		poller.WithIntervals(5*time.Millisecond, 10*time.Millisecond, 15*time.Millisecond),
		poller.WithLogger(logger.Discard()),
	)
}

func start(t *testing.T, p *poller.Poller) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- p.Run(t.Context()) }()
	require.Eventually(t, func() bool { return p.State() == poller.StatePolling }, time.Second, time.Millisecond)
	return done
}

func TestPoller_DefaultSchedule(t *testing.T) {
	p := poller.New(func(context.Context) error { return nil })
	assert.Equal(t, poller.StateIdle, p.State())
	assert.Equal(t, 5*time.Second, p.Interval())
}

func TestPoller_EscalatesAndCaps(t *testing.T) {
	var calls atomic.Int32
	p := newPoller(func(context.Context) error {
		calls.Add(1)
		return errors.New("upstream unavailable")
	})
	start(t, p)

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, time.Second, time.Millisecond)
	assert.Equal(t, 15*time.Millisecond, p.Interval())

	p.Reset()
	assert.Equal(t, 5*time.Millisecond, p.Interval())
}

func TestPoller_PauseAndResume(t *testing.T) {
	var calls atomic.Int32
	p := newPoller(func(context.Context) error {
		calls.Add(1)
		return nil
	})
	start(t, p)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)

	require.NoError(t, p.Pause())
	assert.Equal(t, poller.StatePaused, p.State())
	paused := calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), paused+1, "at most one in-flight fetch after pause")

	require.NoError(t, p.Resume())
	assert.Equal(t, poller.StatePolling, p.State())
	assert.Equal(t, 5*time.Millisecond, p.Interval())

	resumed := calls.Load()
	assert.Eventually(t, func() bool { return calls.Load() > resumed }, time.Second, time.Millisecond)
}

func TestPoller_Stop(t *testing.T) {
	p := newPoller(func(context.Context) error { return nil })
	done := start(t, p)

	p.Stop()
	p.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return")
	}
	assert.Equal(t, poller.StateStopped, p.State())
	assert.Error(t, p.Resume())
}

func TestPoller_InvalidUse(t *testing.T) {
	err := poller.New(nil).Run(context.Background())
	assert.ErrorIs(t, err, poller.ErrNoFetchFunc)

	p := newPoller(func(context.Context) error { return nil })
	assert.Error(t, p.Pause(), "cannot pause before start")

	start(t, p)
	err = p.Run(context.Background())
	assert.ErrorIs(t, err, poller.ErrAlreadyStarted)
}
