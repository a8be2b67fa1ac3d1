package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthSession is an audit record written at sign-in. Verification of the
// auth cookie is stateless (signature + expiry only); these rows exist for
// bookkeeping: which devices signed in, when, and until when. The token is
// stored as a SHA-256 digest so the table never holds a usable credential.
type AuthSession struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	TokenDigest string     `json:"-"`
	DeviceInfo  string     `json:"device_info,omitempty"`
	IPAddress   string     `json:"ip_address,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	LastActive  time.Time  `json:"last_active"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
