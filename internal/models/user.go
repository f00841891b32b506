package models

import (
	"time"
)

// Avatar is an externally hosted profile image: the media host's object id
// plus the URL clients should render.
type Avatar struct {
	PublicID string `json:"public_id" db:"avatar_public_id"`
	URL      string `json:"url" db:"avatar_url"`
}

// User represents a registered shopper.
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"` // Password hash is never sent to clients
	Avatar    Avatar    `json:"avatar"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Reset-token state. Only the sha256 hash of the emailed token is kept;
	// both fields are empty unless a reset is in flight.
	ResetPasswordToken   string    `json:"-" db:"reset_password_token"`
	ResetPasswordExpires time.Time `json:"-" db:"reset_password_expires"`
}

// HasActiveReset reports whether a reset token is stored and not yet expired.
func (u *User) HasActiveReset(now time.Time) bool {
	return u.ResetPasswordToken != "" && u.ResetPasswordExpires.After(now)
}
