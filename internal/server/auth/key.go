// Package auth signs and verifies access tokens and carries the immutable
// token settings loaded at startup.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
)

// MinSecretLength is the shortest accepted HMAC secret in bytes (256 bits).
const MinSecretLength = 32

// SigningKey holds the symmetric secret, issuer, audience and access token
// lifetime. It cannot be changed after NewSigningKey returns.
type SigningKey struct {
	secret   []byte
	issuer   string
	audience string
	lifetime time.Duration
}

// NewSigningKey validates and copies the settings. Any problem is reported
// as common.ErrConfiguration.
func NewSigningKey(secret []byte, issuer, audience string, lifetime time.Duration) (*SigningKey, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: signing key is %d bits, need at least %d", common.ErrConfiguration, len(secret)*8, MinSecretLength*8)
	}
	if issuer == "" {
		return nil, fmt.Errorf("%w: issuer is required", common.ErrConfiguration)
	}
	if audience == "" {
		return nil, fmt.Errorf("%w: audience is required", common.ErrConfiguration)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("%w: access token lifetime must be positive", common.ErrConfiguration)
	}
	return &SigningKey{
		secret:   append([]byte(nil), secret...),
		issuer:   issuer,
		audience: audience,
		lifetime: lifetime,
	}, nil
}

func (k *SigningKey) Issuer() string          { return k.issuer }
func (k *SigningKey) Audience() string        { return k.audience }
func (k *SigningKey) Lifetime() time.Duration { return k.lifetime }
