package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const clockLeeway = 5 * time.Second

// ErrInvalidToken is returned for any token that fails parsing or verification.
var ErrInvalidToken = errors.New("invalid identity token")

// Claims is the subset of identity provider session claims the API relies on.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
}

// Verifier validates bearer tokens and returns the external subject id.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// TokenConfig configures JWKS based verification.
type TokenConfig struct {
	JWKSURL string
	Issuer  string
	// Verify=false parses tokens without checking signatures. Expiry is still
	// enforced. Config validation refuses this mode in production.
	Verify bool
}

// TokenVerifier checks RS256 signatures against the provider's JWKS.
type TokenVerifier struct {
	keyfunc jwt.Keyfunc
	issuer  string
	verify  bool
}

// NewTokenVerifier fetches the JWKS when verification is enabled.
func NewTokenVerifier(ctx context.Context, cfg TokenConfig) (*TokenVerifier, error) {
	v := &TokenVerifier{issuer: cfg.Issuer, verify: cfg.Verify}
	if !cfg.Verify {
		return v, nil
	}
	if cfg.JWKSURL == "" {
		return nil, errors.New("jwks url is required when token verification is enabled")
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
	if err != nil {
		return nil, fmt.Errorf("load jwks from %s: %w", cfg.JWKSURL, err)
	}
	v.keyfunc = jwks.Keyfunc
	return v, nil
}

// NewStaticVerifier verifies tokens with a fixed key function.
func NewStaticVerifier(kf jwt.Keyfunc, issuer string) *TokenVerifier {
	return &TokenVerifier{keyfunc: kf, issuer: issuer, verify: true}
}

// Verify parses and validates token.
func (v *TokenVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	if !v.verify {
		return v.parseUnverified(token)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyfunc, opts...)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (v *TokenVerifier) parseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time.Add(clockLeeway)) {
		return nil, fmt.Errorf("%w: token is expired", ErrInvalidToken)
	}
	return claims, nil
}
