// Package ratelimiter is a token bucket limiter with an in-memory store and
// HTTP middleware. The notifier uses it to bound how fast a single client
// address can open notification streams; reconnect storms from a broken
// client would otherwise register channels faster than they are cleaned up.
package ratelimiter
