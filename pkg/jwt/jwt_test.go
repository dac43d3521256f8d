package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/notifier/pkg/jwt"
)

const secret = "test-secret-0123456789"

func sign(t *testing.T, method gojwt.SigningMethod, key any, claims gojwt.MapClaims) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newVerifier(t *testing.T) *jwt.Verifier {
	t.Helper()
	v, err := jwt.NewVerifier(jwt.Config{Secret: secret})
	require.NoError(t, err)
	return v
}

func TestVerify_RecipientClaims(t *testing.T) {
	v := newVerifier(t)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		claims  gojwt.MapClaims
		want    jwt.Principal
		wantErr error
	}{
		{"user_id number", gojwt.MapClaims{"user_id": 7, "role": "doctor", "exp": exp}, jwt.Principal{RecipientID: 7, Role: "doctor"}, nil},
		{"userId", gojwt.MapClaims{"userId": 8, "exp": exp}, jwt.Principal{RecipientID: 8}, nil},
		{"id", gojwt.MapClaims{"id": "9", "exp": exp}, jwt.Principal{RecipientID: 9}, nil},
		{"sub string", gojwt.MapClaims{"sub": "10", "exp": exp}, jwt.Principal{RecipientID: 10}, nil},
		{"user_id wins over sub", gojwt.MapClaims{"user_id": 11, "sub": "12", "exp": exp}, jwt.Principal{RecipientID: 11}, nil},
		{"no id claim", gojwt.MapClaims{"role": "admin", "exp": exp}, jwt.Principal{}, jwt.ErrMissingRecipient},
		{"non numeric sub", gojwt.MapClaims{"sub": "abc", "exp": exp}, jwt.Principal{}, jwt.ErrMissingRecipient},
		{"zero id", gojwt.MapClaims{"user_id": 0, "exp": exp}, jwt.Principal{}, jwt.ErrMissingRecipient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := v.Verify(sign(t, gojwt.SigningMethodHS256, []byte(secret), tt.claims))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestVerify_Rejections(t *testing.T) {
	v := newVerifier(t)

	_, err := v.Verify("")
	assert.ErrorIs(t, err, jwt.ErrMissingToken)

	_, err = v.Verify("not.a.token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	expired := sign(t, gojwt.SigningMethodHS256, []byte(secret), gojwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, jwt.ErrExpiredToken)

	wrongKey := sign(t, gojwt.SigningMethodHS256, []byte("other"), gojwt.MapClaims{"user_id": 1})
	_, err = v.Verify(wrongKey)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	none := sign(t, gojwt.SigningMethodNone, gojwt.UnsafeAllowNoneSignatureType, gojwt.MapClaims{"user_id": 1})
	_, err = v.Verify(none)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestVerify_Issuer(t *testing.T) {
	v, err := jwt.NewVerifier(jwt.Config{Secret: secret, Issuer: "docmatch-auth"})
	require.NoError(t, err)

	good := sign(t, gojwt.SigningMethodHS256, []byte(secret), gojwt.MapClaims{"user_id": 1, "iss": "docmatch-auth"})
	_, err = v.Verify(good)
	assert.NoError(t, err)

	bad := sign(t, gojwt.SigningMethodHS256, []byte(secret), gojwt.MapClaims{"user_id": 1, "iss": "elsewhere"})
	_, err = v.Verify(bad)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestVerify_Clock(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	v, err := jwt.NewVerifier(jwt.Config{Secret: secret}, jwt.WithClock(func() time.Time { return past }))
	require.NoError(t, err)

	token := sign(t, gojwt.SigningMethodHS256, []byte(secret), gojwt.MapClaims{
		"user_id": 1,
		"exp":     past.Add(time.Minute).Unix(),
	})
	_, err = v.Verify(token)
	assert.NoError(t, err)
}

func TestIssuerRoundTrip(t *testing.T) {
	cfg := jwt.Config{Secret: secret, Issuer: "docmatch-auth", TTL: time.Hour}
	iss, err := jwt.NewIssuer(cfg)
	require.NoError(t, err)
	v, err := jwt.NewVerifier(cfg)
	require.NoError(t, err)

	token, err := iss.Issue(jwt.Principal{RecipientID: 42, Role: "hospital"})
	require.NoError(t, err)

	p, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, jwt.Principal{RecipientID: 42, Role: "hospital"}, p)

	_, err = jwt.NewIssuer(jwt.Config{})
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)
	_, err = jwt.NewVerifier(jwt.Config{})
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)
}

func TestExtractors(t *testing.T) {
	extract := jwt.FirstOf(jwt.BearerTokenExtractor, jwt.QueryTokenExtractor("token"))

	tests := []struct {
		name    string
		header  string
		query   string
		want    string
		wantErr error
	}{
		{"header", "Bearer abc", "", "abc", nil},
		{"lowercase scheme", "bearer abc", "", "abc", nil},
		{"query fallback", "", "?token=xyz", "xyz", nil},
		{"header preferred", "Bearer abc", "?token=xyz", "abc", nil},
		{"malformed header not masked", "Basic abc", "?token=xyz", "", jwt.ErrInvalidToken},
		{"nothing", "", "", "", jwt.ErrMissingToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/notifications/stream"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, err := extract(r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := newVerifier(t)
	iss, err := jwt.NewIssuer(jwt.Config{Secret: secret})
	require.NoError(t, err)

	var seen jwt.Principal
	h := jwt.Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = jwt.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Body.String())

	token, err := iss.Issue(jwt.Principal{RecipientID: 5, Role: "doctor"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, jwt.Principal{RecipientID: 5, Role: "doctor"}, seen)
}

func TestMiddleware_CustomErrorHandler(t *testing.T) {
	v := newVerifier(t)
	var gotErr error
	h := jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
		Verifier: v,
		ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
			gotErr = err
			w.WriteHeader(http.StatusTeapot)
		},
	})(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, jwt.IsAuthError(gotErr))
}
