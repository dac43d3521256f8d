package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/docmatch/notifier/pkg/dispatch"
	"github.com/docmatch/notifier/pkg/jwt"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/metrics"
	"github.com/docmatch/notifier/pkg/registry"
)

// Ack is the first data frame of a registered session.
type Ack struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	UserID    int64  `json:"userId"`
	Timestamp string `json:"timestamp"`
}

// Handler serves stream sessions.
type Handler struct {
	cfg      Config
	registry *registry.Registry
	verifier *jwt.Verifier
	extract  jwt.TokenExtractorFunc
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics sets the collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithClock overrides the time used for the acknowledgement timestamp.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithExtractor overrides how the token is read from the request.
func WithExtractor(e jwt.TokenExtractorFunc) Option {
	return func(h *Handler) {
		if e != nil {
			h.extract = e
		}
	}
}

// NewHandler creates a stream handler that registers sessions in reg.
func NewHandler(reg *registry.Registry, v *jwt.Verifier, cfg Config, opts ...Option) *Handler {
	cfg = cfg.withDefaults()
	h := &Handler{
		cfg:      cfg,
		registry: reg,
		verifier: v,
		extract:  jwt.FirstOf(jwt.BearerTokenExtractor, jwt.QueryTokenExtractor(cfg.TokenQueryParam)),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.NewNop()
	}
	h.logger = h.logger.With(logger.Component("stream"))
	return h
}

// ServeHTTP runs one session until the client disconnects or a write fails.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := NewSessionMachine(func(from, to State, event Event) {
		h.logger.LogAttrs(ctx, slog.LevelDebug, "stream session transition",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("event", string(event)),
		)
	})
	_ = session.Fire(ctx, EventRequest)

	principal, err := jwt.Authenticate(r, h.verifier, h.extract)
	if err != nil {
		_ = session.Fire(ctx, EventRejected)
		h.metrics.StreamAuthFailures.Inc()
		h.logger.LogAttrs(ctx, slog.LevelDebug, "stream handshake rejected", logger.Error(err))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	rc := http.NewResponseController(w)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		_ = session.Fire(ctx, EventDisconnected)
		h.logger.LogAttrs(ctx, slog.LevelError, "stream cannot flush",
			logger.Error(errors.Join(ErrStreamingUnsupported, err)),
		)
		return
	}

	ch := NewChannel(h.cfg.BufferSize)
	conn := h.registry.Register(principal.RecipientID, ch)
	_ = session.Fire(ctx, EventAuthenticated)
	h.metrics.StreamsOpened.Inc()

	log := h.logger.With(
		logger.RecipientID(principal.RecipientID),
		logger.ConnectionID(conn.ID),
	)
	log.LogAttrs(ctx, slog.LevelInfo, "stream opened", logger.Role(principal.Role))

	defer func() {
		h.registry.Unregister(principal.RecipientID, ch)
		ch.Close()
		_ = session.Fire(context.WithoutCancel(ctx), EventDisconnected)
		log.LogAttrs(ctx, slog.LevelInfo, "stream closed")
	}()

	if err := h.handshake(w, rc, principal.RecipientID); err != nil {
		log.LogAttrs(ctx, slog.LevelDebug, "stream handshake write failed", logger.Error(err))
		return
	}

	if err := h.pump(ctx, w, rc, ch); err != nil {
		log.LogAttrs(ctx, slog.LevelDebug, "stream write failed", logger.Error(err))
	}
}

func (h *Handler) handshake(w http.ResponseWriter, rc *http.ResponseController, recipientID int64) error {
	ack, err := dispatch.Frame(Ack{
		Type:      "connection",
		Message:   h.cfg.AckMessage,
		UserID:    recipientID,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if _, err := w.Write(dispatch.Comment("connected")); err != nil {
		return err
	}
	if _, err := w.Write(ack); err != nil {
		return err
	}
	return rc.Flush()
}

// pump forwards queued frames and heartbeats until ctx ends. Only this
// goroutine touches the response writer.
func (h *Handler) pump(ctx context.Context, w http.ResponseWriter, rc *http.ResponseController, ch *Channel) error {
	heartbeat := time.NewTicker(h.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch.Done():
			return nil
		case frame := <-ch.Frames():
			if _, err := w.Write(frame); err != nil {
				return err
			}
			if err := rc.Flush(); err != nil {
				return err
			}
		case <-heartbeat.C:
			if _, err := w.Write(dispatch.Comment("heartbeat")); err != nil {
				return err
			}
			if err := rc.Flush(); err != nil {
				return err
			}
		}
	}
}
