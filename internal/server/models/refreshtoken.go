package models

import "time"

// RefreshToken is one issued session-renewal credential. Rows are immutable
// apart from RevokedAt, which goes from nil to a timestamp once.
type RefreshToken struct {
	ID        int64      `db:"id"`
	Token     string     `db:"token"`
	UserID    int64      `db:"user_id"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`

	// User is the owner, filled by lookups that join users.
	User *User `db:"-"`
}

// IsExpired reports whether now is at or past ExpiresAt.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsRevoked reports whether the token has been revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive is true when the token is neither revoked nor expired at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
