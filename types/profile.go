package types

import "time"

// Profile is the persisted profile record kept by the identity provider
// in its profiles table, keyed by user id.
type Profile struct {
	// ID equals the identity provider's user id.
	ID string `json:"id" db:"id"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Role is the raw role as stored; it is normalized on read.
	Role string `json:"role" db:"role"`

	// Department is the authority department, if any.
	Department string `json:"department" db:"department"`

	// CreatedAt is the timestamp when the profile was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the profile.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
