package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/notifier/handler"
	"github.com/docmatch/notifier/pkg/clientip"
	"github.com/docmatch/notifier/pkg/jwt"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/ratelimiter"
)

func TestAPI_StreamLimiterKeyedByClientIP(t *testing.T) {
	verifier, err := jwt.NewVerifier(jwt.Config{Secret: "api-test-secret"})
	require.NoError(t, err)

	store := ratelimiter.NewMemoryStore(ratelimiter.WithSweep(0, 0))
	t.Cleanup(store.Close)
	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})
	require.NoError(t, err)

	var seen []string
	router := handler.New(handler.Dependencies{
		Verifier: verifier,
		Stream: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, clientip.FromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		}),
		StreamLimiter: ratelimiter.Middleware(bucket, func(r *http.Request) string {
			return clientip.FromContext(r.Context())
		}, logger.Discard()),
	}, handler.WithLogger(logger.Discard())).Routes()

	open := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/notifications/stream", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, open("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, open("198.51.100.1"))
	assert.Equal(t, http.StatusOK, open("198.51.100.2"))
	assert.Equal(t, []string{"198.51.100.1", "198.51.100.2"}, seen)
}
