package identity

import (
	"fmt"
	"time"

	"github.com/commercezen/engine/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// Claims is the access-token payload issued at login.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// IssueToken signs an access token for the identity.
func IssueToken(id Identity, cfg config.JWTConfig, now time.Time) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	claims := Claims{
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiration())),
		},
	}
	return jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
}

// ParseToken validates the token signature, issuer, and expiry, and returns
// the embedded identity.
func ParseToken(token string, cfg config.JWTConfig) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return Identity{}, fmt.Errorf("invalid token claims")
	}
	return Identity{ID: claims.Subject, Name: claims.Name}, nil
}
