package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/metrics"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/targeting"
)

// Sources label where a send came from.
const (
	SourceAPI    = "api"
	SourceIntake = "intake"
)

// Result reports the outcome of a send.
type Result struct {
	Created   int `json:"created"`
	Delivered int `json:"delivered"`
	// Skipped counts explicit ids that do not belong to a known user.
	Skipped int `json:"skipped,omitempty"`
}

// Service runs bulk sends.
type Service struct {
	resolver  *targeting.Resolver
	manager   *notifications.Manager
	deliverer notifications.Deliverer
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService wires a Service. A nil deliverer disables live delivery.
func NewService(resolver *targeting.Resolver, manager *notifications.Manager, deliverer notifications.Deliverer, opts ...Option) *Service {
	if deliverer == nil {
		deliverer = notifications.NoOpDeliverer{}
	}
	s := &Service{
		resolver:  resolver,
		manager:   manager,
		deliverer: deliverer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNop()
	}
	s.logger = s.logger.With(logger.Component("notify"))
	return s
}

// Send validates req, creates one notification per resolved recipient and
// dispatches the rows. Delivery is best effort: recipients without an open
// stream still get their row and pick it up on the next fetch.
func (s *Service) Send(ctx context.Context, source string, req BulkSendRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	target := req.Target()
	target.Role = strings.ToLower(target.Role)

	ids, err := s.resolver.Resolve(ctx, target)
	if err != nil {
		return Result{}, err
	}

	var skipped int
	if len(target.UserIDs) > 0 {
		existing, err := s.resolver.Existing(ctx, ids)
		if err != nil {
			return Result{}, err
		}
		skipped = len(ids) - len(existing)
		ids = existing
	}

	if len(ids) == 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "send resolved no recipients",
			slog.String("source", source),
			logger.Role(target.Role),
			logger.Count("skipped", skipped),
		)
		return Result{Skipped: skipped}, nil
	}

	created, err := s.manager.CreateMany(ctx, ids, req.Draft())
	if err != nil {
		return Result{}, fmt.Errorf("failed to create notifications: %w", err)
	}
	s.metrics.NotificationsCreated.WithLabelValues(source).Add(float64(len(created)))

	delivered := s.deliverer.DeliverBatch(ctx, created)

	s.logger.LogAttrs(ctx, slog.LevelInfo, "notifications sent",
		slog.String("source", source),
		logger.Count("created", len(created)),
		logger.Count("delivered", delivered),
		logger.Count("skipped", skipped),
	)
	return Result{Created: len(created), Delivered: delivered, Skipped: skipped}, nil
}
