package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/notifier/pkg/dispatch"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/metrics"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/registry"
)

type recordingChannel struct {
	name string
	fail bool

	mu     sync.Mutex
	frames [][]byte
}

func (c *recordingChannel) Write(frame []byte) error {
	if c.fail {
		return errors.New(c.name + " is closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *recordingChannel) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

type closableChannel struct {
	recordingChannel
	closed atomic.Bool
}

func (c *closableChannel) Close() {
	c.closed.Store(true)
}

// slowChannel tracks how many writes run at once across channels sharing
// the same counters.
type slowChannel struct {
	inFlight *atomic.Int32
	peak     *atomic.Int32
	writes   *atomic.Int32
}

func (c *slowChannel) Write([]byte) error {
	cur := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		old := c.peak.Load()
		if cur <= old || c.peak.CompareAndSwap(old, cur) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	c.writes.Add(1)
	return nil
}

func newDispatcher(reg *registry.Registry) (*dispatch.Dispatcher, *metrics.Metrics) {
	m := metrics.NewNop()
	return dispatch.New(reg, dispatch.WithLogger(logger.Discard()), dispatch.WithMetrics(m)), m
}

func sample() notifications.Notification {
	return notifications.Notification{
		ID:          99,
		RecipientID: 1,
		Title:       "Application update",
		Body:        "You are shortlisted",
		Type:        notifications.TypeSuccess,
		Channel:     notifications.ChannelInApp,
	}
}

func decodeFrame(t *testing.T, frame []byte) map[string]any {
	t.Helper()
	s := string(frame)
	require.True(t, strings.HasPrefix(s, "data: "), "frame %q", s)
	require.True(t, strings.HasSuffix(s, "\n\n"), "frame %q", s)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(s, "data: "), "\n\n")), &out))
	return out
}

func TestSendToUser_FailingChannelIsRemoved(t *testing.T) {
	reg := registry.New()
	d, m := newDispatcher(reg)

	c1 := &recordingChannel{name: "c1"}
	c2 := &recordingChannel{name: "c2", fail: true}
	c3 := &recordingChannel{name: "c3"}
	for _, c := range []*recordingChannel{c1, c2, c3} {
		reg.Register(1, c)
	}

	ok := d.SendToUser(context.Background(), 1, sample())
	assert.True(t, ok)

	require.Len(t, c1.received(), 1)
	require.Len(t, c3.received(), 1)
	assert.Equal(t, c1.received()[0], c3.received()[0], "frame is serialized once")
	assert.Equal(t, float64(99), decodeFrame(t, c1.received()[0])["id"])

	assert.Equal(t, 2, reg.TotalChannelCount())
	for _, ch := range reg.Channels(1) {
		assert.NotSame(t, c2, ch)
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChannelWriteFailures))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FramesDelivered))
}

func TestSendToUser_FailingChannelIsClosed(t *testing.T) {
	reg := registry.New()
	d, _ := newDispatcher(reg)

	broken := &closableChannel{recordingChannel: recordingChannel{name: "broken", fail: true}}
	healthy := &closableChannel{recordingChannel: recordingChannel{name: "healthy"}}
	reg.Register(1, broken)
	reg.Register(1, healthy)

	assert.True(t, d.SendToUser(context.Background(), 1, sample()))
	assert.True(t, broken.closed.Load(), "broken channel is closed so its transport ends")
	assert.False(t, healthy.closed.Load())
	assert.Equal(t, 1, reg.TotalChannelCount())
}

func TestSendToUser_NoChannels(t *testing.T) {
	reg := registry.New()
	d, m := newDispatcher(reg)

	assert.NotPanics(t, func() {
		assert.False(t, d.SendToUser(context.Background(), 7, sample()))
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RecipientsOffline))
}

func TestSendToUser_AllChannelsFail(t *testing.T) {
	reg := registry.New()
	d, _ := newDispatcher(reg)
	reg.Register(1, &recordingChannel{name: "a", fail: true})
	reg.Register(1, &recordingChannel{name: "b", fail: true})

	assert.False(t, d.SendToUser(context.Background(), 1, sample()))
	assert.False(t, reg.IsConnected(1), "recipient entry is removed with its last channel")
}

func TestSendToUser_UnencodableData(t *testing.T) {
	reg := registry.New()
	d, _ := newDispatcher(reg)
	ch := &recordingChannel{name: "a"}
	reg.Register(1, ch)

	n := sample()
	n.Data = map[string]any{"bad": make(chan int)}
	assert.False(t, d.SendToUser(context.Background(), 1, n))
	assert.Empty(t, ch.received())
}

func TestBroadcast(t *testing.T) {
	reg := registry.New()
	d, _ := newDispatcher(reg)

	const a, b, c int64 = 1, 2, 3
	a1 := &recordingChannel{name: "a1"}
	a2 := &recordingChannel{name: "a2"}
	c1 := &recordingChannel{name: "c1"}
	reg.Register(a, a1)
	reg.Register(a, a2)
	reg.Register(c, c1)
	// b had a channel once; it is gone by dispatch time.
	bGone := &recordingChannel{name: "b1"}
	reg.Register(b, bGone)
	reg.Unregister(b, bGone)

	reached := d.Broadcast(context.Background(), sample())
	assert.Equal(t, 2, reached)

	for _, ch := range []*recordingChannel{a1, a2, c1} {
		require.Len(t, ch.received(), 1, ch.name)
	}
	assert.Equal(t, a1.received()[0], a2.received()[0])
	assert.Equal(t, a1.received()[0], c1.received()[0])
	assert.Empty(t, bGone.received())
}

func TestBroadcast_CanceledContextStillDelivers(t *testing.T) {
	reg := registry.New()
	d, _ := newDispatcher(reg)
	ch := &recordingChannel{name: "a"}
	reg.Register(1, ch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 1, d.Broadcast(ctx, sample()))
	assert.Len(t, ch.received(), 1)
}

func TestDeliverBatch(t *testing.T) {
	reg := registry.New()
	d, _ := newDispatcher(reg)

	online := &recordingChannel{name: "online"}
	reg.Register(10, online)

	batch := []notifications.Notification{
		{ID: 1, RecipientID: 10, Title: "t", Body: "b", Type: notifications.TypeInfo},
		{ID: 2, RecipientID: 20, Title: "t", Body: "b", Type: notifications.TypeInfo},
	}
	assert.Equal(t, 1, d.DeliverBatch(context.Background(), batch))
	require.Len(t, online.received(), 1)
	assert.Equal(t, float64(1), decodeFrame(t, online.received()[0])["id"])

	assert.Zero(t, d.DeliverBatch(context.Background(), nil))
}

func TestDeliverBatch_BoundedConcurrency(t *testing.T) {
	reg := registry.New()
	d := dispatch.New(reg, dispatch.WithLogger(logger.Discard()), dispatch.WithConcurrency(4))

	var inFlight, peak, writes atomic.Int32
	const recipients = 200
	batch := make([]notifications.Notification, recipients)
	for i := range batch {
		id := int64(i + 1)
		reg.Register(id, &slowChannel{inFlight: &inFlight, peak: &peak, writes: &writes})
		batch[i] = notifications.Notification{ID: id, RecipientID: id, Title: "t", Body: "b", Type: notifications.TypeInfo}
	}

	assert.Equal(t, recipients, d.DeliverBatch(context.Background(), batch))
	assert.Equal(t, int32(recipients), writes.Load())
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestFrameAndComment(t *testing.T) {
	frame, err := dispatch.Frame(map[string]string{"type": "connection"})
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"connection\"}\n\n", string(frame))
	assert.Equal(t, ": connected\n\n", string(dispatch.Comment("connected")))
}

func TestSendToUser_ConcurrentUnregister(t *testing.T) {
	reg := registry.New()
	d, _ := newDispatcher(reg)

	channels := make([]*recordingChannel, 50)
	for i := range channels {
		channels[i] = &recordingChannel{name: "c"}
		reg.Register(1, channels[i])
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 100 {
			d.SendToUser(context.Background(), 1, sample())
		}
	}()
	go func() {
		defer wg.Done()
		for _, ch := range channels {
			reg.Unregister(1, ch)
		}
	}()
	wg.Wait()

	assert.False(t, reg.IsConnected(1))
}
