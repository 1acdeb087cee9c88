package service_auth_token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/humanbelnik/gamenight/internal/apperr"
)

var (
	ErrMissingToken = apperr.Unauthenticated("identity token required")
	ErrInvalidToken = apperr.Unauthenticated("invalid identity token")
	ErrTokenExpired = apperr.Unauthenticated("identity token expired")
)

// Service issues and verifies HS256 identity tokens whose subject is the
// caller's uid.
type Service struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func New(secret string, issuer string) *Service {
	return &Service{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue is used by development tooling; production tokens come from the
// identity provider sharing the secret.
func (s *Service) Issue(uid string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(uid) == "" {
		return "", apperr.InvalidArgument("uid required")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return signed, nil
}

// Verify returns the uid carried by token.
func (s *Service) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired.With(err)
		}
		return "", ErrInvalidToken.With(err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
