package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"travelbooking/internal/domain"
	"travelbooking/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity fields clients already rely on.
type Claims struct {
	ID       string      `json:"id"`
	Role     models.Role `json:"role"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	jwt.RegisteredClaims
}

// Gate issues and verifies HS256 bearer tokens.
type Gate struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewGate(secret string, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Gate{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (g *Gate) Issue(user *models.User) (string, error) {
	now := g.now()
	claims := Claims{
		ID:       user.ID,
		Role:     user.Role,
		Email:    user.Email,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authorize verifies a credential ("Bearer <jwt>" or the bare token) and
// returns the caller it identifies.
func (g *Gate) Authorize(credential string) (*Caller, error) {
	tokenStr := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if tokenStr == "" {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "missing token")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.Errorf(domain.ErrUnauthenticated, "token expired")
		}
		return nil, domain.Errorf(domain.ErrUnauthenticated, "invalid token")
	}

	if claims.ID == "" || !claims.Role.IsValid() {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "invalid token claims")
	}
	return &Caller{
		UserID:   claims.ID,
		Role:     claims.Role,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}
