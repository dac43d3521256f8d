// Package tail is a minimal notifier client: it follows the notification
// stream and reconciles the unread counter with a poller, reconnecting when
// the stream drops.
package tail

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/poller"
)

var (
	ErrUnauthorized     = errors.New("stream rejected the token")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Config is read from the environment.
type Config struct {
	BaseURL        string        `env:"NOTIFIER_URL" envDefault:"http://localhost:8080"`
	Token          string        `env:"NOTIFIER_TOKEN,required"`
	ReconnectDelay time.Duration `env:"NOTIFIER_RECONNECT_DELAY" envDefault:"3s"`
}

// Ack is the first data frame of a stream.
type Ack struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

// Handler receives stream events.
type Handler interface {
	Connected(ack Ack)
	Notification(v notifications.View)
	Unread(count int)
}

// Client talks to one notifier.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	poller *poller.Poller
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{cfg: cfg, http: http.DefaultClient, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.BaseURL = strings.TrimRight(c.cfg.BaseURL, "/")
	return c
}

// Run follows the stream until ctx is done, reconnecting after failures, and
// refreshes the unread counter on the poller schedule. A rejected token ends
// Run with ErrUnauthorized.
func (c *Client) Run(ctx context.Context, h Handler, pollOpts ...poller.Option) error {
	c.poller = poller.New(func(ctx context.Context) error {
		n, err := c.UnreadCount(ctx)
		if err != nil {
			return err
		}
		h.Unread(n)
		return nil
	}, append([]poller.Option{poller.WithLogger(c.logger)}, pollOpts...)...)

	go func() { _ = c.poller.Run(ctx) }()
	defer c.poller.Stop()

	for {
		err := c.Follow(ctx, h)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		c.logger.WarnContext(ctx, "stream disconnected", logger.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// Follow reads one stream connection until it ends.
func (c *Client) Follow(ctx context.Context, h Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/notifications/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return readFrames(resp.Body, func(data []byte) {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			c.logger.WarnContext(ctx, "skipping undecodable frame", logger.Error(err))
			return
		}
		if probe.Type == "connection" {
			var ack Ack
			_ = json.Unmarshal(data, &ack)
			// Frames sent while disconnected are gone; catch up quickly.
			if c.poller != nil {
				c.poller.Reset()
			}
			h.Connected(ack)
			return
		}
		var v notifications.View
		if err := json.Unmarshal(data, &v); err != nil {
			c.logger.WarnContext(ctx, "skipping undecodable notification", logger.Error(err))
			return
		}
		h.Notification(v)
	})
}

// UnreadCount asks the API for the caller's unread total.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	u, err := url.JoinPath(c.cfg.BaseURL, "notifications", "unread-count")
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Data.Count, nil
}

// readFrames calls fn with the payload of every data frame in r. Comment
// frames are skipped. Multi-line data is joined with newlines.
func readFrames(r io.Reader, fn func(data []byte)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				fn([]byte(strings.Join(data, "\n")))
				data = data[:0]
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}
