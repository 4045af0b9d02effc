package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenRequest describes a staff token to mint.
type TokenRequest struct {
	Subject string
	Name    string
	Roles   []string
	TTL     time.Duration
}

// IssueToken signs an HS256 bearer token accepted by JWTMiddleware.
func IssueToken(cfg JWTConfig, req TokenRequest, now time.Time) (string, error) {
	if len(cfg.SigningKey) == 0 {
		return "", errors.New("signing key is required")
	}
	if req.Subject == "" {
		return "", errors.New("subject is required")
	}
	for _, r := range req.Roles {
		if !ValidRole(r) {
			return "", fmt.Errorf("unknown role: %s", r)
		}
	}
	if req.TTL <= 0 {
		req.TTL = 12 * time.Hour
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(req.TTL)),
		},
		Name:  req.Name,
		Roles: req.Roles,
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.SigningKey)
}
