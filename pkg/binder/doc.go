// Package binder decodes HTTP request data into request structs.
//
// JSON reads a strict, size-limited JSON body. Query and Path fill struct
// fields from the query string and from router path parameters using the
// `query` and `path` struct tags:
//
//	type listRequest struct {
//		ID     int64    `path:"id"`
//		Unread bool     `query:"unread"`
//		Types  []string `query:"type"`
//	}
//
// Binders are applied in order by handler.Wrap. A binder returns
// ErrBinderNotApplicable when the request carries nothing for it.
package binder
