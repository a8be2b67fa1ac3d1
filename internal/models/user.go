package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"-"` // argon2id hash, never serialized
}

// Public returns the fields safe to include in API responses.
func (u *User) Public() map[string]interface{} {
	return map[string]interface{}{
		"id":         u.ID.String(),
		"username":   u.Username,
		"email":      u.Email,
		"created_at": u.CreatedAt,
	}
}
