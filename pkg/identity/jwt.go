package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cutrackit/courtflow/pkg/profile"
)

// JWTConfig configures the JWT resolver.
type JWTConfig struct {
	// SigningKey is the HMAC key used to verify token signatures.
	SigningKey []byte

	// Issuer, when set, is the required issuer claim.
	Issuer string
}

// JWTResolver resolves HS256 bearer tokens. Tokens carrying a numeric
// user_id claim resolve directly; otherwise the sub claim is mapped to a
// profile via its identity-provider subject id.
type JWTResolver struct {
	cfg      JWTConfig
	profiles profile.Store
}

// NewJWTResolver creates a new JWT resolver.
func NewJWTResolver(cfg JWTConfig, profiles profile.Store) (*JWTResolver, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("jwt signing key is required")
	}
	return &JWTResolver{cfg: cfg, profiles: profiles}, nil
}

// Resolve validates the token and returns the profile id.
func (r *JWTResolver) Resolve(ctx context.Context, credential string) (int64, error) {
	if credential == "" {
		return 0, ErrUnauthenticated
	}

	claims, err := r.parseAndValidateToken(credential)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// Tokens minted by the gym's own issuer carry the profile id directly.
	if raw, ok := claims["user_id"]; ok {
		if id, ok := raw.(float64); ok && id > 0 {
			return int64(id), nil
		}
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return 0, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	if r.profiles == nil {
		return 0, fmt.Errorf("%w: no profile store for sub mapping", ErrInvalidToken)
	}

	p, err := r.profiles.ByAuthID(ctx, sub)
	if err == profile.ErrNotFound {
		return 0, ErrUnauthenticated
	}
	if err != nil {
		return 0, fmt.Errorf("resolving auth subject: %w", err)
	}
	return p.ID, nil
}

// Subject validates the token and returns its sub claim. It is used by the
// profile sync flow, which runs before a profile exists for the subject.
func (r *JWTResolver) Subject(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrUnauthenticated
	}
	claims, err := r.parseAndValidateToken(credential)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	return sub, nil
}

// parseAndValidateToken parses and validates the JWT.
func (r *JWTResolver) parseAndValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.cfg.SigningKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}

	if r.cfg.Issuer != "" {
		iss, _ := claims["iss"].(string)
		if iss != r.cfg.Issuer {
			return nil, fmt.Errorf("invalid issuer: got %q, want %q", iss, r.cfg.Issuer)
		}
	}

	return claims, nil
}

// Verify interface compliance.
var _ Resolver = (*JWTResolver)(nil)
