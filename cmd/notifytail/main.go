// Command notifytail follows a user's notification stream and prints every
// notification plus the reconciled unread count. Configured from the
// environment: NOTIFIER_URL, NOTIFIER_TOKEN.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/docmatch/notifier/internal/tail"
	"github.com/docmatch/notifier/pkg/config"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/notifications"
)

type printer struct {
	log *slog.Logger
}

func (p printer) Connected(ack tail.Ack) {
	p.log.Info("connected", logger.RecipientID(ack.UserID), slog.String("message", ack.Message))
}

func (p printer) Notification(v notifications.View) {
	p.log.Info(v.Title,
		logger.NotificationID(v.ID),
		slog.String("type", string(v.Type)),
		slog.String("body", v.Body),
	)
}

func (p printer) Unread(n int) {
	p.log.Debug("unread", logger.Count("count", n))
}

func main() {
	log := logger.New(logger.WithFormat(logger.FormatText))

	var cfg tail.Config
	if err := config.Load(&cfg); err != nil {
		log.Error("failed to load config", logger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tail.New(cfg, tail.WithLogger(log)).Run(ctx, printer{log: log}); err != nil {
		log.Error("tail stopped", logger.Error(err))
		os.Exit(1)
	}
}
