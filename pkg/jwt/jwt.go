package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Config holds token verification settings.
type Config struct {
	Secret string        `env:"JWT_SECRET,required"`
	Issuer string        `env:"JWT_ISSUER"`                  // checked when set
	Leeway time.Duration `env:"JWT_LEEWAY" envDefault:"30s"` // clock skew tolerance
	TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`    // lifetime of tokens minted by Issuer
}

// Principal is the authenticated caller.
type Principal struct {
	RecipientID int64
	Role        string
}

// RecipientClaims lists the claims that may carry the recipient id, in
// lookup order.
var RecipientClaims = []string{"user_id", "userId", "id", "sub"}

var validMethods = []string{
	gojwt.SigningMethodHS256.Alg(),
	gojwt.SigningMethodHS384.Alg(),
	gojwt.SigningMethodHS512.Alg(),
}

// Verifier checks token signatures and claims.
type Verifier struct {
	secret []byte
	opts   []gojwt.ParserOption
}

// VerifierOption configures a Verifier.
type VerifierOption func(*[]gojwt.ParserOption)

// WithClock overrides the time used for exp/nbf/iat checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(opts *[]gojwt.ParserOption) {
		*opts = append(*opts, gojwt.WithTimeFunc(now))
	}
}

// NewVerifier creates a verifier for cfg.
func NewVerifier(cfg Config, opts ...VerifierOption) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSigningKey
	}

	parserOpts := []gojwt.ParserOption{
		gojwt.WithValidMethods(validMethods),
		gojwt.WithLeeway(cfg.Leeway),
		gojwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, gojwt.WithIssuer(cfg.Issuer))
	}
	for _, opt := range opts {
		opt(&parserOpts)
	}

	return &Verifier{secret: []byte(cfg.Secret), opts: parserOpts}, nil
}

// Verify parses token and extracts the principal.
func (v *Verifier) Verify(token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrMissingToken
	}

	claims := gojwt.MapClaims{}
	_, err := gojwt.ParseWithClaims(token, claims, func(t *gojwt.Token) (any, error) {
		if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return Principal{}, errors.Join(ErrExpiredToken, err)
		}
		return Principal{}, errors.Join(ErrInvalidToken, err)
	}

	return PrincipalFromClaims(claims)
}

// PrincipalFromClaims reads the recipient id and role from decoded claims.
func PrincipalFromClaims(claims map[string]any) (Principal, error) {
	for _, name := range RecipientClaims {
		raw, ok := claims[name]
		if !ok || raw == nil {
			continue
		}
		id, err := toID(raw)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: claim %q: %v", ErrMissingRecipient, name, err)
		}
		role, _ := claims["role"].(string)
		return Principal{RecipientID: id, Role: role}, nil
	}
	return Principal{}, ErrMissingRecipient
}

func toID(raw any) (int64, error) {
	var id int64
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("non-integer id %v", v)
		}
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric id %q", v)
		}
		id = parsed
	default:
		return 0, fmt.Errorf("unsupported id type %T", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("non-positive id %d", id)
	}
	return id, nil
}

// Issuer mints tokens accepted by a Verifier with the same Config.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer for cfg.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSigningKey
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs an HS256 token for p.
func (i *Issuer) Issue(p Principal) (string, error) {
	now := i.now()
	claims := gojwt.MapClaims{
		"sub":     strconv.FormatInt(p.RecipientID, 10),
		"user_id": p.RecipientID,
		"iat":     now.Unix(),
		"exp":     now.Add(i.ttl).Unix(),
	}
	if p.Role != "" {
		claims["role"] = p.Role
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(i.secret)
}
