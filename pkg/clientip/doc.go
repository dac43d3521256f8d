// Package clientip resolves the originating client address of a request
// that passed through reverse proxies.
//
// Headers are checked in order: CF-Connecting-IP, X-Forwarded-For (first
// valid entry), X-Real-IP. RemoteAddr is the fallback. Middleware stores the
// result in the request context for rate limiting and request logs.
package clientip
