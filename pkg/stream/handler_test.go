package stream_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/notifier/pkg/dispatch"
	"github.com/docmatch/notifier/pkg/jwt"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/metrics"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/registry"
	"github.com/docmatch/notifier/pkg/stream"
)

const testSecret = "stream-test-secret"

type fixture struct {
	server   *httptest.Server
	registry *registry.Registry
	issuer   *jwt.Issuer
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, cfg stream.Config) *fixture {
	t.Helper()

	jwtCfg := jwt.Config{Secret: testSecret}
	verifier, err := jwt.NewVerifier(jwtCfg)
	require.NoError(t, err)
	issuer, err := jwt.NewIssuer(jwtCfg)
	require.NoError(t, err)

	reg := registry.New()
	m := metrics.New(prometheus.NewRegistry())
	h := stream.NewHandler(reg, verifier, cfg,
		stream.WithLogger(logger.Discard()),
		stream.WithMetrics(m),
		stream.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, registry: reg, issuer: issuer, metrics: m}
}

func (f *fixture) token(t *testing.T, id int64) string {
	t.Helper()
	token, err := f.issuer.Issue(jwt.Principal{RecipientID: id, Role: "doctor"})
	require.NoError(t, err)
	return token
}

type client struct {
	resp   *http.Response
	reader *bufio.Reader
	cancel context.CancelFunc
}

func (f *fixture) open(t *testing.T, query, bearer string) *client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL+"/notifications/stream"+query, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	c := &client{resp: resp, reader: bufio.NewReader(resp.Body), cancel: cancel}
	t.Cleanup(func() {
		cancel()
		_ = resp.Body.Close()
	})
	return c
}

// next reads one frame, without its trailing blank line.
func (c *client) next(t *testing.T) string {
	t.Helper()
	var lines []string
	for {
		line, err := c.reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			if len(lines) == 0 {
				continue
			}
			return strings.Join(lines, "\n")
		}
		lines = append(lines, line)
	}
}

func (c *client) nextData(t *testing.T, v any) {
	t.Helper()
	frame := c.next(t)
	require.True(t, strings.HasPrefix(frame, "data: "), "expected data frame, got %q", frame)
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), v))
}

func TestHandler_RejectsMissingAndInvalidTokens(t *testing.T) {
	f := newFixture(t, stream.Config{})

	tests := []struct {
		name   string
		query  string
		bearer string
	}{
		{"no credential", "", ""},
		{"garbage bearer", "", "garbage"},
		{"garbage query", "?token=garbage", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := f.open(t, tt.query, tt.bearer)
			assert.Equal(t, http.StatusUnauthorized, c.resp.StatusCode)
		})
	}

	assert.Equal(t, 0, f.registry.TotalChannelCount())
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.StreamAuthFailures))
}

func TestHandler_Handshake(t *testing.T) {
	f := newFixture(t, stream.Config{AckMessage: "hello"})

	c := f.open(t, "?token="+f.token(t, 5), "")
	require.Equal(t, http.StatusOK, c.resp.StatusCode)
	assert.Equal(t, "text/event-stream", c.resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", c.resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", c.resp.Header.Get("X-Accel-Buffering"))

	assert.Equal(t, ": connected", c.next(t))

	var ack stream.Ack
	c.nextData(t, &ack)
	assert.Equal(t, stream.Ack{
		Type:      "connection",
		Message:   "hello",
		UserID:    5,
		Timestamp: "2026-03-01T12:00:00Z",
	}, ack)

	assert.True(t, f.registry.IsConnected(5))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.StreamsOpened))
}

func TestHandler_Heartbeat(t *testing.T) {
	f := newFixture(t, stream.Config{HeartbeatInterval: 20 * time.Millisecond})

	c := f.open(t, "", f.token(t, 1))
	c.next(t)
	c.next(t)

	assert.Equal(t, ": heartbeat", c.next(t))
}

func TestHandler_TwoTabsReceiveSameNotification(t *testing.T) {
	f := newFixture(t, stream.Config{})
	d := dispatch.New(f.registry, dispatch.WithLogger(logger.Discard()))

	token := f.token(t, 9)
	tabs := []*client{f.open(t, "", token), f.open(t, "?token="+token, "")}
	for _, tab := range tabs {
		tab.next(t)
		tab.next(t)
	}
	require.Len(t, f.registry.Channels(9), 2)

	n := notifications.Notification{
		ID:          77,
		RecipientID: 9,
		Title:       "Interview scheduled",
		Body:        "Tomorrow 10:00",
		Type:        notifications.TypeInfo,
		Channel:     notifications.ChannelInApp,
		CreatedAt:   time.Now(),
	}
	require.True(t, d.SendToUser(context.Background(), 9, n))

	for _, tab := range tabs {
		var view notifications.View
		tab.nextData(t, &view)
		assert.Equal(t, int64(77), view.ID)
		assert.Equal(t, "Interview scheduled", view.Title)
	}
}

func TestHandler_DisconnectUnregistersOnlyThatTab(t *testing.T) {
	f := newFixture(t, stream.Config{})

	token := f.token(t, 3)
	first := f.open(t, "", token)
	second := f.open(t, "", token)
	for _, tab := range []*client{first, second} {
		tab.next(t)
		tab.next(t)
	}
	require.Equal(t, 2, f.registry.TotalChannelCount())

	first.cancel()

	assert.Eventually(t, func() bool {
		return f.registry.TotalChannelCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.True(t, f.registry.IsConnected(3))
}

func TestHandler_OverflowEndsSession(t *testing.T) {
	f := newFixture(t, stream.Config{BufferSize: 1, HeartbeatInterval: time.Hour})
	d := dispatch.New(f.registry, dispatch.WithLogger(logger.Discard()))

	c := f.open(t, "", f.token(t, 4))
	c.next(t)
	c.next(t)
	require.True(t, f.registry.IsConnected(4))

	n := notifications.Notification{
		ID:          1,
		RecipientID: 4,
		Title:       strings.Repeat("x", 64<<10),
		Body:        "body",
		Type:        notifications.TypeInfo,
		Channel:     notifications.ChannelInApp,
		CreatedAt:   time.Now(),
	}
	// The client is not reading, so the socket fills and then the buffer.
	for i := 0; i < 5000 && f.registry.IsConnected(4); i++ {
		d.SendToUser(context.Background(), 4, n)
	}
	require.False(t, f.registry.IsConnected(4), "overflowing channel is dropped")

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.Discard, c.reader)
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err, "stream ends cleanly so the client reconnects")
	case <-time.After(5 * time.Second):
		t.Fatal("stream stayed open after its channel was dropped")
	}

	again := f.open(t, "", f.token(t, 4))
	again.next(t)
	again.next(t)
	n.Title = "after reconnect"
	require.True(t, d.SendToUser(context.Background(), 4, n))
	var view notifications.View
	again.nextData(t, &view)
	assert.Equal(t, "after reconnect", view.Title)
}
