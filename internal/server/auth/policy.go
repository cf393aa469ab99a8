package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
)

// RefreshTokenPolicy supplies the refresh token lifespan. It is tuned
// independently of the access token lifetime.
type RefreshTokenPolicy struct {
	lifespan time.Duration
}

func NewRefreshTokenPolicy(lifespan time.Duration) (RefreshTokenPolicy, error) {
	if lifespan <= 0 {
		return RefreshTokenPolicy{}, fmt.Errorf("%w: refresh token lifespan must be positive", common.ErrConfiguration)
	}
	return RefreshTokenPolicy{lifespan: lifespan}, nil
}

func (p RefreshTokenPolicy) Lifespan() time.Duration { return p.lifespan }
