// Command notifier serves real-time notifications over server-sent events,
// the notification REST API and, when configured, the Kafka intake.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/docmatch/notifier/handler"
	"github.com/docmatch/notifier/pkg/clientip"
	"github.com/docmatch/notifier/pkg/config"
	"github.com/docmatch/notifier/pkg/dispatch"
	"github.com/docmatch/notifier/pkg/environment"
	"github.com/docmatch/notifier/pkg/httpserver"
	"github.com/docmatch/notifier/pkg/intake"
	"github.com/docmatch/notifier/pkg/jwt"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/metrics"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/ratelimiter"
	"github.com/docmatch/notifier/pkg/redis"
	"github.com/docmatch/notifier/pkg/registry"
	"github.com/docmatch/notifier/pkg/requestid"
	"github.com/docmatch/notifier/pkg/stream"
	"github.com/docmatch/notifier/pkg/targeting"
	"github.com/docmatch/notifier/svc/notify"
)

func main() {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}

	env := environment.Parse(cfg.Env)
	log := logger.New(
		logger.WithEnvironment(env, cfg.Service),
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
	)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("notifier stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("notifier stopped")
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	storage, membership, checks, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	if cfg.MembershipCache {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		membership = targeting.NewCachedMembership(membership, client, cfg.MembershipCacheTTL,
			targeting.WithCacheLogger(log),
		)
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	}

	authz, err := loadAuthorizer(ctx, cfg.RolesFile)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	conns := registry.New()
	m.ObserveConnections(conns.ConnectedRecipientCount, conns.TotalChannelCount)

	dispatcher := dispatch.New(conns,
		dispatch.WithLogger(log),
		dispatch.WithMetrics(m),
		dispatch.WithConcurrency(cfg.DispatchConcurrency),
	)

	verifier, err := jwt.NewVerifier(cfg.JWT)
	if err != nil {
		return err
	}

	manager := notifications.NewManager(storage,
		notifications.WithLogger(log),
		notifications.WithAuthorizer(authz),
	)
	service := notify.NewService(targeting.NewResolver(membership), manager, dispatcher,
		notify.WithLogger(log),
		notify.WithMetrics(m),
	)

	var streamLimiter func(http.Handler) http.Handler
	if cfg.StreamRateLimit.Enabled() {
		store := ratelimiter.NewMemoryStore()
		defer store.Close()
		bucket, err := ratelimiter.NewBucket(store, cfg.StreamRateLimit)
		if err != nil {
			return err
		}
		streamLimiter = ratelimiter.Middleware(bucket, func(r *http.Request) string {
			return clientip.FromContext(r.Context())
		}, log)
	}

	streams := stream.NewHandler(conns, verifier, cfg.Stream,
		stream.WithLogger(log),
		stream.WithMetrics(m),
	)

	api := handler.New(handler.Dependencies{
		Manager:       manager,
		Notify:        service,
		Registry:      conns,
		Authorizer:    authz,
		Verifier:      verifier,
		Stream:        streams,
		StreamLimiter: streamLimiter,
		Metrics:       m,
		Gatherer:      promReg,
		Checks:        checks,
	}, handler.WithLogger(log), handler.WithConfig(cfg.API))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, api.Routes())
	})

	if cfg.Intake.Enabled() {
		consumer := intake.NewConsumer(intake.NewReader(cfg.Intake), service,
			intake.WithLogger(log),
			intake.WithMetrics(m),
			intake.WithBackoff(cfg.Intake.RetryBackoff, cfg.Intake.MaxBackoff),
		)
		g.Go(func() error { return consumer.Run(ctx) })
	} else {
		log.Info("kafka intake disabled")
	}

	return g.Wait()
}
