package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/docmatch/notifier/pkg/clientip"
	"github.com/docmatch/notifier/pkg/httpserver"
	"github.com/docmatch/notifier/pkg/jwt"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/metrics"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/rbac"
	"github.com/docmatch/notifier/pkg/registry"
	"github.com/docmatch/notifier/pkg/requestid"
	"github.com/docmatch/notifier/svc/notify"
)

// Config holds API settings.
type Config struct {
	DefaultPageSize  int           `env:"API_DEFAULT_PAGE_SIZE" envDefault:"20"`
	MaxPageSize      int           `env:"API_MAX_PAGE_SIZE" envDefault:"100"`
	ReadinessTimeout time.Duration `env:"API_READINESS_TIMEOUT" envDefault:"2s"`
}

// Dependencies are the collaborators the API serves.
type Dependencies struct {
	Manager       *notifications.Manager
	Notify        *notify.Service
	Registry      *registry.Registry
	Authorizer    *rbac.Authorizer
	Verifier      *jwt.Verifier
	Stream        http.Handler
	// StreamLimiter, when set, wraps the stream endpoint.
	StreamLimiter func(http.Handler) http.Handler
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Checks        []httpserver.Check
}

// API serves the notifier's HTTP endpoints.
type API struct {
	Dependencies
	cfg    Config
	logger *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithConfig overrides the API settings.
func WithConfig(cfg Config) Option {
	return func(a *API) { a.cfg = cfg }
}

// New creates the API.
func New(deps Dependencies, opts ...Option) *API {
	a := &API{
		Dependencies: deps,
		cfg:          Config{DefaultPageSize: 20, MaxPageSize: 100, ReadinessTimeout: 2 * time.Second},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Metrics == nil {
		a.Metrics = metrics.NewNop()
	}
	if a.Authorizer == nil {
		// DefaultRoles has no inheritance cycles, so this cannot fail.
		a.Authorizer, _ = rbac.NewAuthorizer(context.Background(), rbac.NewMemorySource(rbac.DefaultRoles()))
	}
	if a.cfg.DefaultPageSize <= 0 {
		a.cfg.DefaultPageSize = 20
	}
	if a.cfg.MaxPageSize < a.cfg.DefaultPageSize {
		a.cfg.MaxPageSize = a.cfg.DefaultPageSize
	}
	a.logger = a.logger.With(logger.Component("api"))
	return a
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware)
	r.Use(a.recoverer)
	r.Use(a.Metrics.Middleware)

	r.NotFound(a.errorHandlerFunc(ErrRouteNotFound))
	r.MethodNotAllowed(a.errorHandlerFunc(ErrMethodNotAllowed))

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(a.logger, a.cfg.ReadinessTimeout, a.Checks...))
	if a.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(a.Gatherer))
	}

	if a.Stream != nil {
		stream := a.Stream
		if a.StreamLimiter != nil {
			stream = a.StreamLimiter(stream)
		}
		r.Method(http.MethodGet, "/notifications/stream", stream)
	}

	r.Group(func(r chi.Router) {
		r.Use(jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
			Verifier:     a.Verifier,
			ErrorHandler: a.authError,
		}))

		r.Get("/notifications", a.listNotifications())
		r.Get("/notifications/unread-count", a.unreadCount())
		r.Patch("/notifications/read", a.markManyRead())
		r.Delete("/notifications/read", a.clearRead())
		r.Patch("/notifications/read-all", a.markAllRead())
		r.Get("/notifications/{id}", a.getNotification())
		r.Patch("/notifications/{id}/read", a.markRead())
		r.Delete("/notifications/{id}", a.deleteNotification())

		r.Post("/admin/notifications/bulk", a.bulkSend())
		r.Get("/admin/notifications/connections", a.connections())
		r.Get("/admin/notifications/connections/{user_id}", a.recipientConnections())
	})

	return r
}

// fail logs err at a level matching its status and renders it.
func (a *API) fail(ctx Context, err error) Response {
	status, _ := Classify(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	} else if status == http.StatusUnauthorized || status == http.StatusNotFound {
		level = slog.LevelDebug
	}

	r := ctx.Request()
	a.logger.LogAttrs(ctx, level, "request failed",
		logger.Error(err),
		slog.Int("status", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		logger.RecipientID(ctx.Actor().ID),
	)
	return JSONError(err)
}

func (a *API) errorHandler(ctx Context, err error) {
	_ = a.fail(ctx, err).Render(ctx.ResponseWriter(), ctx.Request())
}

func (a *API) errorHandlerFunc(err error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = JSONError(err).Render(w, r)
	}
}

func (a *API) authError(w http.ResponseWriter, r *http.Request, err error) {
	a.errorHandler(NewContext(w, r), err)
}

func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered",
					slog.Any("panic", rec),
					slog.String("path", r.URL.Path),
				)
				_ = JSONError(NewHTTPError(http.StatusInternalServerError, "internal_error")).Render(w, r)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
