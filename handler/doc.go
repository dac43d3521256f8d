// Package handler is the HTTP surface of the notifier.
//
// Endpoints are typed functions, HandlerFunc[R], adapted to net/http by
// Wrap. Wrap runs the configured binders to fill the request value, applies
// decorators such as RequirePermission and renders the returned Response.
// Errors are rendered in the JSON envelope
//
//	{"data": ..., "meta": ..., "error": {"code": "...", "message": "...", "details": {...}}}
//
// with the status chosen by Classify. API.Routes mounts every endpoint on a
// chi router, including the event stream, probes and /metrics.
package handler
