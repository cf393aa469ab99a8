package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/dmitrijs2005/nizamla/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access token payload. Besides the registered claims it
// carries the short claim names that .NET writes for NameIdentifier, Name,
// Email and Role, so existing clients keep reading them.
type Claims struct {
	jwt.RegisteredClaims
	NameID string `json:"nameid"`
	Name   string `json:"unique_name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, common.ErrInvalidToken
	}
	return id, nil
}

// Option configures a TokenIssuer.
type Option func(*TokenIssuer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *TokenIssuer) { i.now = now }
}

// TokenIssuer signs access tokens with HS256. It performs no I/O.
type TokenIssuer struct {
	key *SigningKey
	now func() time.Time
}

func NewTokenIssuer(key *SigningKey, opts ...Option) *TokenIssuer {
	i := &TokenIssuer{key: key, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CreateAccessToken returns a signed token for user and its expiry
// (now + lifetime, truncated to whole seconds as stored in "exp").
func (i *TokenIssuer) CreateAccessToken(user *models.User) (string, time.Time, error) {
	id := strconv.FormatInt(user.ID, 10)
	exp := jwt.NewNumericDate(i.now().Add(i.key.lifetime))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.key.issuer,
			Subject:   id,
			Audience:  jwt.ClaimStrings{i.key.audience},
			ExpiresAt: exp,
		},
		NameID: id,
		Name:   user.Username,
		Email:  user.Email,
		Role:   user.Role,
	})

	signed, err := token.SignedString(i.key.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp.Time, nil
}

// ParseAccessToken verifies signature, algorithm, issuer, audience and
// expiry with no clock skew. It returns common.ErrTokenExpired for expired
// tokens and common.ErrInvalidToken for everything else.
func (i *TokenIssuer) ParseAccessToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.key.issuer),
		jwt.WithAudience(i.key.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.key.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
