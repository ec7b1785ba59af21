package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TokenManager validates bearer tokens issued by the identity provider.
// Issue exists for tooling and tests; the service itself never mints tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret, issuer string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		now:    time.Now,
	}
}

// Claims describes JWT payload.
type Claims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts claims into the caller identity. Unknown or missing
// roles degrade to agent.
func (c *Claims) Identity() domain.Identity {
	role := domain.Role(strings.ToLower(string(c.Role)))
	if role != domain.RoleAdmin {
		role = domain.RoleAgent
	}
	return domain.Identity{UserID: c.Subject, Email: c.Email, Role: role}
}

// Issue signs a token for identity.
func (tm *TokenManager) Issue(identity domain.Identity) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    tm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
