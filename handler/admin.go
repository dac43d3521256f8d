package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docmatch/notifier/pkg/binder"
	"github.com/docmatch/notifier/pkg/rbac"
	"github.com/docmatch/notifier/svc/notify"
)

// ConnectionStats reports the live stream registry.
type ConnectionStats struct {
	Recipients int `json:"recipients"`
	Channels   int `json:"channels"`
}

// ConnectionInfo describes one open stream of a recipient.
type ConnectionInfo struct {
	ID       string    `json:"id"`
	OpenedAt time.Time `json:"opened_at"`
}

type recipientRequest struct {
	UserID int64 `path:"user_id"`
}

func (a *API) bulkSend() http.HandlerFunc {
	return Wrap[notify.BulkSendRequest](func(ctx Context, req notify.BulkSendRequest) Response {
		res, err := a.Notify.Send(ctx, notify.SourceAPI, req)
		if err != nil {
			return a.fail(ctx, err)
		}
		return JSON(res)
	},
		WithBinders[notify.BulkSendRequest](binder.JSON()),
		WithDecorators[notify.BulkSendRequest](RequirePermission[notify.BulkSendRequest](a.Authorizer, rbac.PermNotificationsBroadcast)),
		WithErrorHandler[notify.BulkSendRequest](a.errorHandler),
	)
}

func (a *API) connections() http.HandlerFunc {
	return Wrap[struct{}](func(ctx Context, _ struct{}) Response {
		return JSON(ConnectionStats{
			Recipients: a.Registry.ConnectedRecipientCount(),
			Channels:   a.Registry.TotalChannelCount(),
		})
	},
		WithDecorators[struct{}](RequirePermission[struct{}](a.Authorizer, rbac.PermNotificationsModerate)),
		WithErrorHandler[struct{}](a.errorHandler),
	)
}

func (a *API) recipientConnections() http.HandlerFunc {
	return Wrap[recipientRequest](func(ctx Context, req recipientRequest) Response {
		conns := a.Registry.Connections(req.UserID)
		out := make([]ConnectionInfo, len(conns))
		for i, c := range conns {
			out[i] = ConnectionInfo{ID: c.ID, OpenedAt: c.OpenedAt.UTC()}
		}
		return JSON(out)
	},
		WithBinders[recipientRequest](binder.Path(chi.URLParam)),
		WithDecorators[recipientRequest](RequirePermission[recipientRequest](a.Authorizer, rbac.PermNotificationsModerate)),
		WithErrorHandler[recipientRequest](a.errorHandler),
	)
}
