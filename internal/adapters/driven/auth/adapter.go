package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
)

// Ensure Adapter implements IdentityVerifier
var _ driven.IdentityVerifier = (*Adapter)(nil)

// jwtClaims is the shape the dashboard's identity provider signs.
type jwtClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Adapter verifies dashboard session tokens issued as HS256 JWTs.
// It only validates; issuing tokens belongs to the identity provider.
type Adapter struct {
	jwtSecret []byte
}

// NewAdapter creates a new identity adapter with the shared JWT secret.
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret)}
}

// Verify validates a session token and extracts the caller's identity.
// Any parse, signature, or expiry failure collapses to ErrUnauthorized.
func (a *Adapter) Verify(tokenString string) (*domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	return &domain.Identity{
		UserID:        claims.UserID,
		Authenticated: true,
	}, nil
}

// IssueToken signs a session token for userID. Exists for tests and local
// development; production tokens come from the identity provider.
func (a *Adapter) IssueToken(userID, email string, ttl time.Duration) (string, error) {
	claims := jwtClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}
