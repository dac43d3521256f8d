package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/docmatch/notifier/pkg/binder"
	"github.com/docmatch/notifier/pkg/notifications"
	"github.com/docmatch/notifier/pkg/validator"
)

type listRequest struct {
	Unread bool                 `query:"unread"`
	Types  []notifications.Type `query:"type"`
	Since  string               `query:"since"`
	Limit  int                  `query:"limit"`
	Offset int                  `query:"offset"`
}

type idRequest struct {
	ID int64 `path:"id"`
}

type idsRequest struct {
	IDs []int64 `json:"ids"`
}

// MaxBatchIDs caps ids in a single mark-read request.
const MaxBatchIDs = 1000

func (a *API) listNotifications() http.HandlerFunc {
	return Wrap[listRequest](func(ctx Context, req listRequest) Response {
		limit := req.Limit
		if limit == 0 {
			limit = a.cfg.DefaultPageSize
		}

		rules := []validator.Rule{
			{Check: func() bool { return limit > 0 && limit <= a.cfg.MaxPageSize }, Error: validator.ValidationError{
				Field: "limit", Message: "must be between 1 and page size limit", Key: "validation.range",
			}},
			{Check: func() bool { return req.Offset >= 0 }, Error: validator.ValidationError{
				Field: "offset", Message: "must not be negative", Key: "validation.min",
			}},
		}
		for _, t := range req.Types {
			rules = append(rules, validator.OneOf("type", t, notifications.Types))
		}

		opts := notifications.ListOptions{
			Limit:      limit,
			Offset:     req.Offset,
			OnlyUnread: req.Unread,
			Types:      req.Types,
		}
		if req.Since != "" {
			since, err := time.Parse(time.RFC3339, req.Since)
			rules = append(rules, validator.Rule{Check: func() bool { return err == nil }, Error: validator.ValidationError{
				Field: "since", Message: "must be an RFC 3339 timestamp", Key: "validation.format",
			}})
			opts.Since = &since
		}
		if err := validator.Apply(rules...); err != nil {
			return a.fail(ctx, err)
		}

		owner := ctx.Actor().ID
		list, err := a.Manager.List(ctx, owner, opts)
		if err != nil {
			return a.fail(ctx, err)
		}
		unread, err := a.Manager.CountUnread(ctx, owner)
		if err != nil {
			return a.fail(ctx, err)
		}

		return JSON(notifications.NewViews(list), WithJSONMeta(map[string]any{
			"limit":  limit,
			"offset": req.Offset,
			"count":  len(list),
			"unread": unread,
		}))
	}, WithBinders[listRequest](binder.Query()), WithErrorHandler[listRequest](a.errorHandler))
}

func (a *API) unreadCount() http.HandlerFunc {
	return Wrap[struct{}](func(ctx Context, _ struct{}) Response {
		count, err := a.Manager.CountUnread(ctx, ctx.Actor().ID)
		if err != nil {
			return a.fail(ctx, err)
		}
		return JSON(map[string]int{"count": count})
	}, WithErrorHandler[struct{}](a.errorHandler))
}

func (a *API) getNotification() http.HandlerFunc {
	return Wrap[idRequest](func(ctx Context, req idRequest) Response {
		n, err := a.Manager.Get(ctx, req.ID, ctx.Actor())
		if err != nil {
			return a.fail(ctx, err)
		}
		return JSON(notifications.NewView(n))
	}, a.idOptions()...)
}

func (a *API) markRead() http.HandlerFunc {
	return Wrap[idRequest](func(ctx Context, req idRequest) Response {
		n, err := a.Manager.MarkRead(ctx, req.ID, ctx.Actor())
		if err != nil {
			return a.fail(ctx, err)
		}
		return JSON(notifications.NewView(n))
	}, a.idOptions()...)
}

func (a *API) deleteNotification() http.HandlerFunc {
	return Wrap[idRequest](func(ctx Context, req idRequest) Response {
		if err := a.Manager.Delete(ctx, req.ID, ctx.Actor()); err != nil {
			return a.fail(ctx, err)
		}
		return Empty()
	}, a.idOptions()...)
}

func (a *API) markManyRead() http.HandlerFunc {
	return Wrap[idsRequest](func(ctx Context, req idsRequest) Response {
		if err := validator.Apply(
			validator.NotEmptySlice("ids", req.IDs),
			validator.MaxItems("ids", req.IDs, MaxBatchIDs),
			validator.PositiveIDs("ids", req.IDs),
		); err != nil {
			return a.fail(ctx, err)
		}
		updated, err := a.Manager.MarkManyRead(ctx, req.IDs, ctx.Actor().ID)
		if err != nil {
			return a.fail(ctx, err)
		}
		return JSON(map[string]int{"updated": updated})
	}, WithBinders[idsRequest](binder.JSON()), WithErrorHandler[idsRequest](a.errorHandler))
}

func (a *API) markAllRead() http.HandlerFunc {
	return Wrap[struct{}](func(ctx Context, _ struct{}) Response {
		updated, err := a.Manager.MarkAllRead(ctx, ctx.Actor().ID)
		if err != nil {
			return a.fail(ctx, err)
		}
		return JSON(map[string]int{"updated": updated})
	}, WithErrorHandler[struct{}](a.errorHandler))
}

func (a *API) clearRead() http.HandlerFunc {
	return Wrap[struct{}](func(ctx Context, _ struct{}) Response {
		deleted, err := a.Manager.ClearRead(ctx, ctx.Actor().ID)
		if err != nil {
			return a.fail(ctx, err)
		}
		return JSON(map[string]int{"deleted": deleted})
	}, WithErrorHandler[struct{}](a.errorHandler))
}

func (a *API) idOptions() []WrapOption[idRequest] {
	return []WrapOption[idRequest]{
		WithBinders[idRequest](binder.Path(chi.URLParam)),
		WithErrorHandler[idRequest](a.errorHandler),
	}
}
