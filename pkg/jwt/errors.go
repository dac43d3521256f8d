package jwt

import "errors"

var (
	ErrMissingToken         = errors.New("jwt: missing token")
	ErrInvalidToken         = errors.New("jwt: invalid token")
	ErrExpiredToken         = errors.New("jwt: token is expired")
	ErrMissingSigningKey    = errors.New("jwt: missing signing key")
	ErrInvalidSigningMethod = errors.New("jwt: invalid signing method")
	ErrMissingRecipient     = errors.New("jwt: no recipient id claim")
)

// IsAuthError reports whether err came from token extraction or
// verification.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrMissingRecipient)
}
