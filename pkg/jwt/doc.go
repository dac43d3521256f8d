// Package jwt verifies bearer tokens issued by the platform's auth service
// and turns them into a Principal.
//
// Tokens are HMAC-signed JWTs checked with github.com/golang-jwt/jwt/v5.
// The recipient id is read from the first present claim among "user_id",
// "userId", "id" and "sub", accepting JSON numbers and numeric strings. The
// optional "role" claim carries the platform role.
//
//	v, err := jwt.NewVerifier(cfg)
//	p, err := v.Verify(token)
//
//	r.Use(jwt.Middleware(v))
//	p, ok := jwt.PrincipalFromContext(ctx)
//
// Extractors pull the raw token from a request; FirstOf chains them, which
// is how the event stream accepts either a header or a "token" query
// parameter. Issuer mints tokens for local development and tests.
package jwt
