package intake

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/metrics"
	"github.com/docmatch/notifier/pkg/requestid"
	"github.com/docmatch/notifier/pkg/targeting"
	"github.com/docmatch/notifier/pkg/validator"
	"github.com/docmatch/notifier/svc/notify"
)

// Message outcomes, used as the result metric label.
const (
	ResultSent      = "sent"
	ResultMalformed = "malformed"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

// Reader is the subset of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sender runs a send request.
type Sender interface {
	Send(ctx context.Context, source string, req notify.BulkSendRequest) (notify.Result, error)
}

// Consumer feeds Kafka messages to a Sender.
type Consumer struct {
	reader       Reader
	sender       Sender
	logger       *slog.Logger
	metrics      *metrics.Metrics
	retryBackoff time.Duration
	maxBackoff   time.Duration
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Consumer) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithBackoff sets the delay after a fetch error and its upper bound.
func WithBackoff(initial, limit time.Duration) Option {
	return func(c *Consumer) {
		if initial > 0 {
			c.retryBackoff = initial
		}
		if limit >= c.retryBackoff {
			c.maxBackoff = limit
		}
	}
}

// NewConsumer creates a consumer reading from r.
func NewConsumer(r Reader, s Sender, opts ...Option) *Consumer {
	c := &Consumer{
		reader:       r,
		sender:       s,
		logger:       slog.Default(),
		retryBackoff: time.Second,
		maxBackoff:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewNop()
	}
	c.logger = c.logger.With(logger.Component("intake"))
	return c
}

// Run consumes until ctx is cancelled or the reader is closed, then closes
// the reader. Fetch errors are retried with exponential backoff.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("failed to close kafka reader", logger.Error(err))
		}
	}()

	c.logger.Info("intake consumer started")
	backoff := c.retryBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.logger.Info("intake consumer stopped")
				return nil
			}
			c.logger.Error("failed to fetch message", logger.Error(err))
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}
		backoff = c.retryBackoff

		c.Handle(ctx, msg)

		// Commit even on failure: no redelivery.
		if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
			c.logger.Error("failed to commit message",
				logger.Error(err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
		}
	}
}

// Handle processes one message and returns its outcome.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) string {
	if id := header(msg, requestid.Header); requestid.IsValid(id) {
		ctx = requestid.WithContext(ctx, id)
	}
	log := c.logger.With(
		slog.String("topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)

	result := ResultSent
	defer func() { c.metrics.IntakeMessages.WithLabelValues(result).Inc() }()

	var req notify.BulkSendRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		result = ResultMalformed
		log.LogAttrs(ctx, slog.LevelWarn, "skipping malformed message", logger.Error(err))
		return result
	}

	res, err := c.sender.Send(ctx, notify.SourceIntake, req)
	switch {
	case err == nil:
		log.LogAttrs(ctx, slog.LevelDebug, "message processed",
			logger.Count("created", res.Created),
			logger.Count("delivered", res.Delivered),
		)
	case validator.IsValidationError(err),
		errors.Is(err, targeting.ErrMissingTarget),
		errors.Is(err, targeting.ErrUnknownRole):
		result = ResultRejected
		log.LogAttrs(ctx, slog.LevelWarn, "message rejected", logger.Error(err))
	default:
		result = ResultFailed
		log.LogAttrs(ctx, slog.LevelError, "message failed", logger.Error(err))
	}
	return result
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
