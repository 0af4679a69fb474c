package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"betai/internal/models"
)

// ErrUnauthenticated is the only error callers see for a bad token.
var ErrUnauthenticated = errors.New("unauthenticated")

// UserLookup resolves token subjects to accounts.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// Service issues and validates signed bearer tokens.
type Service struct {
	secret     []byte
	tokenTTL   time.Duration
	headerName string
	users      UserLookup
	now        func() time.Time
}

// NewService constructs an auth service with the supplied token lifetime.
func NewService(secret string, ttl time.Duration, users UserLookup) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		secret:     []byte(secret),
		tokenTTL:   ttl,
		headerName: "Authorization",
		users:      users,
		now:        time.Now,
	}
}

// IssueToken mints an HS256 token whose subject is the user id.
func (s *Service) IssueToken(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("invalid user id")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken returns the user id carried by a valid token for an existing user.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrUnauthenticated
	}
	if s.users != nil {
		if _, err := s.users.UserByID(ctx, claims.Subject); err != nil {
			return "", ErrUnauthenticated
		}
	}
	return claims.Subject, nil
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
